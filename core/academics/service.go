package academics

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("academic record")
	ErrResultNotFound = core.NewNotFoundError("exam result")
	ErrAcademicsExist = errors.New("the student already has an academic record for this year")

	errNotAStudent       = "user is not a student"
	errUnknownStudent    = "student not found"
	errUnknownSubject    = "subject not found"
	errUnknownClassLevel = "class level not found"
)

type (
	Repository interface {
		CreateAcademics(ctx context.Context, sa StudentAcademics, exec ...core.DBExecutor) (StudentAcademics, error)
		GetAcademics(ctx context.Context, id int, exec ...core.DBExecutor) (StudentAcademics, error)
		QueryAcademics(ctx context.Context, filter *Filter, exec ...core.DBExecutor) ([]StudentAcademics, error)
		UpdateAcademics(ctx context.Context, sa StudentAcademics, exec ...core.DBExecutor) (StudentAcademics, error)

		CreateResult(ctx context.Context, res ExamResult, exec ...core.DBExecutor) (ExamResult, error)
		GetResult(ctx context.Context, id int, exec ...core.DBExecutor) (ExamResult, error)
		QueryResults(ctx context.Context, filter *ResultFilter, exec ...core.DBExecutor) ([]ExamResult, error)
		UpdateResult(ctx context.Context, res ExamResult, exec ...core.DBExecutor) (ExamResult, error)
		DeleteResult(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	ServiceInterface interface {
		Promote(ctx context.Context, studentID int, p Promotion) (user.User, StudentAcademics, error)
		Query(ctx context.Context, filter *Filter) ([]StudentAcademics, error)
		Get(ctx context.Context, id int) (StudentAcademics, error)
		Update(ctx context.Context, sa StudentAcademics, ua UpdateAcademics) (StudentAcademics, error)

		RecordResult(ctx context.Context, ner NewExamResult) (ExamResult, error)
		QueryResults(ctx context.Context, filter *ResultFilter) ([]ExamResult, error)
		GetResult(ctx context.Context, id int) (ExamResult, error)
		UpdateResult(ctx context.Context, res ExamResult, uer UpdateExamResult) (ExamResult, error)
		DeleteResult(ctx context.Context, id int) error
	}

	Service struct {
		db        core.DB
		repo      Repository
		usrRepo   user.Repository
		classRepo school.ClassLevelRepository
		subjRepo  school.SubjectRepository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	usrRepo user.Repository,
	classRepo school.ClassLevelRepository,
	subjRepo school.SubjectRepository,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		usrRepo:   usrRepo,
		classRepo: classRepo,
		subjRepo:  subjRepo,
	}
}

func (p *Promotion) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}

func (ua *UpdateAcademics) Validate(validate *validator.Validate) error {
	ua.Clean()
	return validate.Struct(ua)
}

func (ner *NewExamResult) Validate(validate *validator.Validate) error {
	ner.Clean()
	return validate.Struct(ner)
}

func (uer *UpdateExamResult) Validate(validate *validator.Validate) error {
	uer.Clean()
	return validate.Struct(uer)
}

// getStudent returns the student with the given id: user.ErrNotFound when absent,
// user.ErrNotAStudent when the user has another role.
func (svc *Service) getStudent(ctx context.Context, id int) (user.User, error) {
	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: id})
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsStudent() {
		return user.User{}, user.ErrNotAStudent
	}
	return usr, nil
}

// Promote places a student in a class level for an academic year, and opens a pending academic record
// for that year. Both writes happen in one transaction.
func (svc *Service) Promote(ctx context.Context, studentID int, p Promotion) (user.User, StudentAcademics, error) {
	student, err := svc.getStudent(ctx, studentID)
	if err != nil {
		if err == user.ErrNotAStudent {
			err = core.NewValidationError(err, core.FieldError{Field: "student_id", Error: errNotAStudent})
		}
		return user.User{}, StudentAcademics{}, err
	}
	if _, err = svc.classRepo.GetClassLevel(ctx, p.ClassLevelID); err != nil {
		if core.IsNotFound(err) {
			return user.User{}, StudentAcademics{}, core.NewValidationError(nil, core.FieldError{Field: "class_level_id", Error: errUnknownClassLevel})
		}
		return user.User{}, StudentAcademics{}, errors.Wrap(err, "finding class level")
	}

	student.CurrentClassID = null.IntFrom(p.ClassLevelID)
	student.AcademicYear = null.IntFrom(p.AcademicYear)

	var sa StudentAcademics
	err = core.WithinTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if student, err = svc.usrRepo.UpdateUser(ctx, student, tx); err != nil {
			return errors.Wrap(err, "updating student placement")
		}
		sa, err = svc.repo.CreateAcademics(ctx, StudentAcademics{
			StudentID:       student.ID,
			ClassLevelID:    p.ClassLevelID,
			AcademicYear:    p.AcademicYear,
			PromotionStatus: StatusPending,
		}, tx)
		if errors.Cause(err) == ErrAcademicsExist {
			return core.NewConflictError(err, core.FieldError{Field: "academic_year", Error: ErrAcademicsExist.Error()})
		}
		return errors.Wrap(err, "creating academic record")
	})
	if err != nil {
		return user.User{}, StudentAcademics{}, err
	}
	return student, sa, nil
}

func (svc *Service) Query(ctx context.Context, filter *Filter) ([]StudentAcademics, error) {
	return svc.repo.QueryAcademics(ctx, filter)
}

func (svc *Service) Get(ctx context.Context, id int) (StudentAcademics, error) {
	return svc.repo.GetAcademics(ctx, id)
}

func (svc *Service) Update(ctx context.Context, sa StudentAcademics, ua UpdateAcademics) (StudentAcademics, error) {
	ua.Apply(&sa)
	return svc.repo.UpdateAcademics(ctx, sa)
}

// Exam Results

func (svc *Service) RecordResult(ctx context.Context, ner NewExamResult) (ExamResult, error) {
	var flds []core.FieldError
	if _, err := svc.getStudent(ctx, ner.StudentID); err != nil {
		switch {
		case core.IsNotFound(err):
			flds = append(flds, core.FieldError{Field: "student_id", Error: errUnknownStudent})
		case err == user.ErrNotAStudent:
			flds = append(flds, core.FieldError{Field: "student_id", Error: errNotAStudent})
		default:
			return ExamResult{}, errors.Wrap(err, "finding student")
		}
	}
	if _, err := svc.subjRepo.GetSubject(ctx, ner.SubjectID); err != nil {
		if !core.IsNotFound(err) {
			return ExamResult{}, errors.Wrap(err, "finding subject")
		}
		flds = append(flds, core.FieldError{Field: "subject_id", Error: errUnknownSubject})
	}
	if len(flds) > 0 {
		return ExamResult{}, core.NewValidationError(nil, flds...)
	}

	grade := ner.Grade
	if grade == "" {
		grade = GradeForMarks(*ner.Marks)
	}
	res, err := svc.repo.CreateResult(ctx, ExamResult{
		StudentID:    ner.StudentID,
		SubjectID:    ner.SubjectID,
		AcademicYear: ner.AcademicYear,
		Term:         ner.Term,
		Marks:        *ner.Marks,
		Grade:        grade,
		ExamDate:     ner.ExamDate,
	})
	return res, errors.Wrap(err, "creating exam result")
}

func (svc *Service) QueryResults(ctx context.Context, filter *ResultFilter) ([]ExamResult, error) {
	return svc.repo.QueryResults(ctx, filter)
}

func (svc *Service) GetResult(ctx context.Context, id int) (ExamResult, error) {
	return svc.repo.GetResult(ctx, id)
}

func (svc *Service) UpdateResult(ctx context.Context, res ExamResult, uer UpdateExamResult) (ExamResult, error) {
	uer.Apply(&res)
	return svc.repo.UpdateResult(ctx, res)
}

func (svc *Service) DeleteResult(ctx context.Context, id int) error {
	return svc.repo.DeleteResult(ctx, id)
}
