package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core/user"
)

func TestPolicy_CanPerform(t *testing.T) {
	pol := New()

	admin := &Actor{ID: 1, Role: user.RoleAdmin}
	teacher := &Actor{ID: 2, Role: user.RoleTeacher}
	student := &Actor{ID: 3, Role: user.RoleStudent}

	tests := []struct {
		name   string
		op     Operation
		actor  *Actor
		target Target
		want   bool
	}{
		// anonymous
		{name: "anon: read class levels", op: ReadClassLevels, want: true},
		{name: "anon: read subjects", op: ReadSubjects, want: true},
		{name: "anon: read attendance", op: ReadAttendance},
		{name: "anon: list users", op: ListUsers},
		{name: "anon: read announcements", op: ReadAnnouncements},

		// admin
		{name: "admin: list users", op: ListUsers, actor: admin, want: true},
		{name: "admin: delete other user", op: DeleteUser, actor: admin, target: OwnedBy(3), want: true},
		{name: "admin: delete self", op: DeleteUser, actor: admin, target: OwnedBy(1)},
		{name: "admin: promote", op: PromoteStudent, actor: admin, target: OwnedBy(3), want: true},
		{name: "admin: change role", op: ChangeRole, actor: admin, target: OwnedBy(2), want: true},
		{name: "admin: manage class levels", op: ManageClassLevels, actor: admin, want: true},

		// teacher
		{name: "teacher: record attendance", op: RecordAttendance, actor: teacher, want: true},
		{name: "teacher: read attendance of any student", op: ReadAttendance, actor: teacher, target: OwnedBy(3), want: true},
		{name: "teacher: record result", op: RecordResult, actor: teacher, want: true},
		{name: "teacher: update result", op: UpdateResult, actor: teacher, want: true},
		{name: "teacher: delete result", op: DeleteResult, actor: teacher},
		{name: "teacher: read users", op: ReadUsers, actor: teacher, want: true},
		{name: "teacher: list users", op: ListUsers, actor: teacher},
		{name: "teacher: delete user", op: DeleteUser, actor: teacher, target: OwnedBy(3)},
		{name: "teacher: manage subjects", op: ManageSubjects, actor: teacher},
		{name: "teacher: manage class levels", op: ManageClassLevels, actor: teacher},
		{name: "teacher: promote", op: PromoteStudent, actor: teacher, target: OwnedBy(3)},
		{name: "teacher: change role", op: ChangeRole, actor: teacher, target: OwnedBy(2)},
		{name: "teacher: delete own announcement", op: DeleteAnnouncement, actor: teacher, target: OwnedBy(2), want: true},
		{name: "teacher: delete other's announcement", op: DeleteAnnouncement, actor: teacher, target: OwnedBy(1)},
		{name: "teacher: delete own material", op: DeleteMaterial, actor: teacher, target: OwnedBy(2), want: true},
		{name: "teacher: delete other's material", op: DeleteMaterial, actor: teacher, target: OwnedBy(5)},
		{
			name: "teacher: update own profile", op: UpdateProfile, actor: teacher,
			target: Target{OwnerID: 2, Fields: []string{"full_name", "email"}}, want: true,
		},
		{
			name: "teacher: update own username", op: UpdateProfile, actor: teacher,
			target: Target{OwnerID: 2, Fields: []string{"username"}},
		},

		// student
		{name: "student: read own attendance", op: ReadAttendance, actor: student, target: OwnedBy(3), want: true},
		{name: "student: read other's attendance", op: ReadAttendance, actor: student, target: OwnedBy(4)},
		{name: "student: read attendance without target", op: ReadAttendance, actor: student},
		{name: "student: read own stats", op: ReadAttendanceStats, actor: student, target: OwnedBy(3), want: true},
		{name: "student: read other's stats", op: ReadAttendanceStats, actor: student, target: OwnedBy(2)},
		{name: "student: read own results", op: ReadResults, actor: student, target: OwnedBy(3), want: true},
		{name: "student: read other's results", op: ReadResults, actor: student, target: OwnedBy(4)},
		{name: "student: read own academics", op: ReadAcademics, actor: student, target: OwnedBy(3), want: true},
		{name: "student: read other's academics", op: ReadAcademics, actor: student, target: OwnedBy(4)},
		{name: "student: record attendance", op: RecordAttendance, actor: student},
		{name: "student: record result", op: RecordResult, actor: student},
		{name: "student: delete self", op: DeleteUser, actor: student, target: OwnedBy(3)},
		{name: "student: delete other", op: DeleteUser, actor: student, target: OwnedBy(1)},
		{name: "student: read class levels", op: ReadClassLevels, actor: student, want: true},
		{name: "student: read materials", op: ReadMaterials, actor: student, want: true},
		{name: "student: upload material", op: UploadMaterial, actor: student},
		{name: "student: post announcement", op: PostAnnouncement, actor: student},
		{
			name: "student: update own profile fields", op: UpdateProfile, actor: student,
			target: Target{OwnerID: 3, Fields: []string{"full_name", "email", "profile_picture", "password"}}, want: true,
		},
		{
			name: "student: update own role", op: UpdateProfile, actor: student,
			target: Target{OwnerID: 3, Fields: []string{"full_name", "role"}},
		},
		{
			name: "student: update own class", op: UpdateProfile, actor: student,
			target: Target{OwnerID: 3, Fields: []string{"current_class_id"}},
		},
		{
			name: "student: update other's profile", op: UpdateProfile, actor: student,
			target: Target{OwnerID: 4, Fields: []string{"full_name"}},
		},

		// unknown role
		{name: "unknown role", op: ReadClassLevels, actor: &Actor{ID: 9, Role: "lol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pol.CanPerform(tt.op, tt.actor, tt.target))
		})
	}
}

func TestActorOf(t *testing.T) {
	usr := user.User{ID: 7, Role: user.RoleTeacher, Username: "teacher"}
	assert.Equal(t, &Actor{ID: 7, Role: user.RoleTeacher}, ActorOf(usr))
}
