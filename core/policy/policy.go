// Package policy holds the role based access rules for every API operation.
package policy

import (
	"github.com/trezcool/darasa/core/user"
)

type Operation string

const (
	ReadClassLevels   Operation = "read_class_levels"
	ManageClassLevels Operation = "manage_class_levels"
	ReadSubjects      Operation = "read_subjects"
	ManageSubjects    Operation = "manage_subjects"

	ListUsers     Operation = "list_users"
	ReadUsers     Operation = "read_users"
	CreateUser    Operation = "create_user"
	DeleteUser    Operation = "delete_user"
	UpdateProfile Operation = "update_profile"
	ChangeRole    Operation = "change_role"

	RecordAttendance    Operation = "record_attendance"
	ReadAttendance      Operation = "read_attendance"
	ReadAttendanceStats Operation = "read_attendance_stats"

	RecordResult    Operation = "record_result"
	UpdateResult    Operation = "update_result"
	DeleteResult    Operation = "delete_result"
	ReadResults     Operation = "read_results"
	ReadAcademics   Operation = "read_academics"
	UpdateAcademics Operation = "update_academics"
	PromoteStudent  Operation = "promote_student"

	PostAnnouncement   Operation = "post_announcement"
	ReadAnnouncements  Operation = "read_announcements"
	DeleteAnnouncement Operation = "delete_announcement"
	UploadMaterial     Operation = "upload_material"
	ReadMaterials      Operation = "read_materials"
	DeleteMaterial     Operation = "delete_material"
)

// profileFields are the only user fields a non-admin may change on their own record.
var profileFields = map[string]bool{
	"full_name":       true,
	"email":           true,
	"profile_picture": true,
	"password":        true,
}

type (
	// Actor is the authenticated caller. A nil *Actor is an anonymous caller.
	Actor struct {
		ID   int
		Role string
	}

	// Target describes the record an operation applies to.
	// OwnerID is the user owning the record (the student, author or uploader), 0 when irrelevant.
	// Fields lists the json fields an update touches.
	Target struct {
		OwnerID int
		Fields  []string
	}

	rule func(actor *Actor, target Target) bool

	Policy struct {
		rules map[string]map[Operation]rule // {role: {op: rule}}
	}
)

func ActorOf(usr user.User) *Actor {
	return &Actor{ID: usr.ID, Role: usr.Role}
}

func OwnedBy(id int) Target {
	return Target{OwnerID: id}
}

var (
	allow rule = func(*Actor, Target) bool { return true }

	self rule = func(actor *Actor, target Target) bool {
		return target.OwnerID != 0 && target.OwnerID == actor.ID
	}

	selfProfile rule = func(actor *Actor, target Target) bool {
		if !self(actor, target) {
			return false
		}
		for _, fld := range target.Fields {
			if !profileFields[fld] {
				return false
			}
		}
		return true
	}

	notSelf rule = func(actor *Actor, target Target) bool {
		return target.OwnerID != actor.ID
	}
)

// public operations are allowed to anonymous callers.
var public = map[Operation]bool{
	ReadClassLevels: true,
	ReadSubjects:    true,
}

func New() *Policy {
	return &Policy{
		rules: map[string]map[Operation]rule{
			user.RoleTeacher: {
				ReadClassLevels:     allow,
				ReadSubjects:        allow,
				ReadUsers:           allow,
				UpdateProfile:       selfProfile,
				RecordAttendance:    allow,
				ReadAttendance:      allow,
				ReadAttendanceStats: allow,
				RecordResult:        allow,
				UpdateResult:        allow,
				ReadResults:         allow,
				ReadAcademics:       allow,
				PostAnnouncement:    allow,
				ReadAnnouncements:   allow,
				DeleteAnnouncement:  self,
				UploadMaterial:      allow,
				ReadMaterials:       allow,
				DeleteMaterial:      self,
			},
			user.RoleStudent: {
				ReadClassLevels:     allow,
				ReadSubjects:        allow,
				UpdateProfile:       selfProfile,
				ReadAttendance:      self,
				ReadAttendanceStats: self,
				ReadResults:         self,
				ReadAcademics:       self,
				ReadAnnouncements:   allow,
				ReadMaterials:       allow,
			},
		},
	}
}

// CanPerform reports whether actor may perform op on target.
func (p *Policy) CanPerform(op Operation, actor *Actor, target Target) bool {
	if actor == nil {
		return public[op]
	}
	if actor.Role == user.RoleAdmin {
		// admins cannot delete themselves
		if op == DeleteUser {
			return notSelf(actor, target)
		}
		return true
	}
	if r, ok := p.rules[actor.Role][op]; ok {
		return r(actor, target)
	}
	return false
}
