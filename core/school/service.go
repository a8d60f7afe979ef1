package school

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrClassLevelNotFound   = core.NewNotFoundError("class level")
	ErrSubjectNotFound      = core.NewNotFoundError("subject")
	ErrAnnouncementNotFound = core.NewNotFoundError("announcement")
	ErrMaterialNotFound     = core.NewNotFoundError("material")

	errUnknownClassLevel = "class level not found"
	errUnknownSubject    = "subject not found"
	errUnknownTeacher    = "teacher not found"
)

type (
	ClassLevelRepository interface {
		CreateClassLevel(ctx context.Context, cl ClassLevel, exec ...core.DBExecutor) (ClassLevel, error)
		QueryClassLevels(ctx context.Context, filter *ClassLevelFilter, exec ...core.DBExecutor) ([]ClassLevel, error)
		GetClassLevel(ctx context.Context, id int, exec ...core.DBExecutor) (ClassLevel, error)
		UpdateClassLevel(ctx context.Context, cl ClassLevel, exec ...core.DBExecutor) (ClassLevel, error)
		DeleteClassLevel(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	SubjectRepository interface {
		CreateSubject(ctx context.Context, subj Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter, exec ...core.DBExecutor) ([]Subject, error)
		GetSubject(ctx context.Context, id int, exec ...core.DBExecutor) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject, exec ...core.DBExecutor) (Subject, error)
		DeleteSubject(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	AnnouncementRepository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement, exec ...core.DBExecutor) (Announcement, error)
		QueryAnnouncements(ctx context.Context, exec ...core.DBExecutor) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	MaterialRepository interface {
		CreateMaterial(ctx context.Context, mat Material, exec ...core.DBExecutor) (Material, error)
		QueryMaterials(ctx context.Context, filter *MaterialFilter, exec ...core.DBExecutor) ([]Material, error)
		GetMaterial(ctx context.Context, id int, exec ...core.DBExecutor) (Material, error)
		DeleteMaterial(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		CreateClassLevel(ctx context.Context, ncl NewClassLevel) (ClassLevel, error)
		QueryClassLevels(ctx context.Context, filter *ClassLevelFilter) ([]ClassLevel, error)
		GetClassLevel(ctx context.Context, id int) (ClassLevel, error)
		UpdateClassLevel(ctx context.Context, cl ClassLevel, ucl UpdateClassLevel) (ClassLevel, error)
		DeleteClassLevel(ctx context.Context, id int) error

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		QuerySubjects(ctx context.Context, filter *SubjectFilter) ([]Subject, error)
		GetSubject(ctx context.Context, id int) (Subject, error)
		UpdateSubject(ctx context.Context, subj Subject, us UpdateSubject) (Subject, error)
		DeleteSubject(ctx context.Context, id int) error

		PostAnnouncement(ctx context.Context, na NewAnnouncement, author user.User) (Announcement, error)
		QueryAnnouncements(ctx context.Context) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id int) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id int) error

		UploadMaterial(ctx context.Context, nm NewMaterial, uploader user.User) (Material, error)
		QueryMaterials(ctx context.Context, filter *MaterialFilter) ([]Material, error)
		GetMaterial(ctx context.Context, id int) (Material, error)
		DeleteMaterial(ctx context.Context, id int) error
	}

	Service struct {
		classRepo ClassLevelRepository
		subjRepo  SubjectRepository
		annRepo   AnnouncementRepository
		matRepo   MaterialRepository
		usrRepo   user.Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	classRepo ClassLevelRepository,
	subjRepo SubjectRepository,
	annRepo AnnouncementRepository,
	matRepo MaterialRepository,
	usrRepo user.Repository,
) *Service {
	return &Service{
		classRepo: classRepo,
		subjRepo:  subjRepo,
		annRepo:   annRepo,
		matRepo:   matRepo,
		usrRepo:   usrRepo,
	}
}

func (ncl *NewClassLevel) Validate(validate *validator.Validate) error {
	ncl.Clean()
	return validate.Struct(ncl)
}

func (ucl *UpdateClassLevel) Validate(validate *validator.Validate) error {
	ucl.Clean()
	return validate.Struct(ucl)
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Clean()
	return validate.Struct(ns)
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Clean()
	return validate.Struct(us)
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Clean()
	return validate.Struct(na)
}

func (nm *NewMaterial) Validate(validate *validator.Validate) error {
	nm.Clean()
	return validate.Struct(nm)
}

// Class Levels

func (svc *Service) CreateClassLevel(ctx context.Context, ncl NewClassLevel) (ClassLevel, error) {
	cl, err := svc.classRepo.CreateClassLevel(ctx, ClassLevel{
		Name:         ncl.Name,
		Description:  ncl.Description,
		AcademicYear: ncl.AcademicYear,
	})
	return cl, errors.Wrap(err, "creating class level")
}

func (svc *Service) QueryClassLevels(ctx context.Context, filter *ClassLevelFilter) ([]ClassLevel, error) {
	return svc.classRepo.QueryClassLevels(ctx, filter)
}

func (svc *Service) GetClassLevel(ctx context.Context, id int) (ClassLevel, error) {
	return svc.classRepo.GetClassLevel(ctx, id)
}

func (svc *Service) UpdateClassLevel(ctx context.Context, cl ClassLevel, ucl UpdateClassLevel) (ClassLevel, error) {
	ucl.Apply(&cl)
	return svc.classRepo.UpdateClassLevel(ctx, cl)
}

func (svc *Service) DeleteClassLevel(ctx context.Context, id int) error {
	return svc.classRepo.DeleteClassLevel(ctx, id)
}

// Subjects

// checkSubjectRefs makes sure the referenced class level and teacher exist.
func (svc *Service) checkSubjectRefs(ctx context.Context, classLevelID int, teacherID null.Int) error {
	var flds []core.FieldError
	if _, err := svc.classRepo.GetClassLevel(ctx, classLevelID); err != nil {
		if !core.IsNotFound(err) {
			return errors.Wrap(err, "finding class level")
		}
		flds = append(flds, core.FieldError{Field: "class_level_id", Error: errUnknownClassLevel})
	}
	if teacherID.Valid {
		teacher, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: teacherID.Int})
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "finding teacher")
		}
		if err != nil || !teacher.IsTeacher() {
			flds = append(flds, core.FieldError{Field: "teacher_id", Error: errUnknownTeacher})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	if err := svc.checkSubjectRefs(ctx, ns.ClassLevelID, ns.TeacherID); err != nil {
		return Subject{}, err
	}
	subj, err := svc.subjRepo.CreateSubject(ctx, Subject{
		Name:         ns.Name,
		Description:  null.NewString(ns.Description, ns.Description != ""),
		TeacherID:    ns.TeacherID,
		ClassLevelID: ns.ClassLevelID,
	})
	return subj, errors.Wrap(err, "creating subject")
}

func (svc *Service) QuerySubjects(ctx context.Context, filter *SubjectFilter) ([]Subject, error) {
	return svc.subjRepo.QuerySubjects(ctx, filter)
}

func (svc *Service) GetSubject(ctx context.Context, id int) (Subject, error) {
	return svc.subjRepo.GetSubject(ctx, id)
}

func (svc *Service) UpdateSubject(ctx context.Context, subj Subject, us UpdateSubject) (Subject, error) {
	us.Apply(&subj)
	if us.ClassLevelID != nil || us.TeacherID != nil {
		if err := svc.checkSubjectRefs(ctx, subj.ClassLevelID, subj.TeacherID); err != nil {
			return Subject{}, err
		}
	}
	return svc.subjRepo.UpdateSubject(ctx, subj)
}

func (svc *Service) DeleteSubject(ctx context.Context, id int) error {
	return svc.subjRepo.DeleteSubject(ctx, id)
}

// Announcements

func (svc *Service) PostAnnouncement(ctx context.Context, na NewAnnouncement, author user.User) (Announcement, error) {
	ann, err := svc.annRepo.CreateAnnouncement(ctx, Announcement{
		Title:     na.Title,
		Content:   na.Content,
		AuthorID:  author.ID,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	})
	return ann, errors.Wrap(err, "creating announcement")
}

func (svc *Service) QueryAnnouncements(ctx context.Context) ([]Announcement, error) {
	return svc.annRepo.QueryAnnouncements(ctx)
}

func (svc *Service) GetAnnouncement(ctx context.Context, id int) (Announcement, error) {
	return svc.annRepo.GetAnnouncement(ctx, id)
}

func (svc *Service) DeleteAnnouncement(ctx context.Context, id int) error {
	return svc.annRepo.DeleteAnnouncement(ctx, id)
}

// Materials

func (svc *Service) UploadMaterial(ctx context.Context, nm NewMaterial, uploader user.User) (Material, error) {
	if _, err := svc.subjRepo.GetSubject(ctx, nm.SubjectID); err != nil {
		if core.IsNotFound(err) {
			return Material{}, core.NewValidationError(nil, core.FieldError{Field: "subject_id", Error: errUnknownSubject})
		}
		return Material{}, errors.Wrap(err, "finding subject")
	}
	mat, err := svc.matRepo.CreateMaterial(ctx, Material{
		Title:       nm.Title,
		Description: null.NewString(nm.Description, nm.Description != ""),
		FileURL:     nm.FileURL,
		UploadedBy:  uploader.ID,
		SubjectID:   nm.SubjectID,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	})
	return mat, errors.Wrap(err, "creating material")
}

func (svc *Service) QueryMaterials(ctx context.Context, filter *MaterialFilter) ([]Material, error) {
	return svc.matRepo.QueryMaterials(ctx, filter)
}

func (svc *Service) GetMaterial(ctx context.Context, id int) (Material, error) {
	return svc.matRepo.GetMaterial(ctx, id)
}

func (svc *Service) DeleteMaterial(ctx context.Context, id int) error {
	return svc.matRepo.DeleteMaterial(ctx, id)
}
