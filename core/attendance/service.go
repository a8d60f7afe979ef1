package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("attendance")
	ErrAttendanceExists = errors.New("attendance already recorded for this user, subject and date")

	errUnknownUser       = "user not found"
	errUnknownSubject    = "subject not found"
	errUnknownClassLevel = "class level not found"
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		GetAttendance(ctx context.Context, id int, exec ...core.DBExecutor) (Attendance, error)
		// FindAttendance returns the record of a user for a subject on a date.
		FindAttendance(ctx context.Context, userID, subjectID int, date core.Date, exec ...core.DBExecutor) (Attendance, error)
		QueryAttendance(ctx context.Context, filter *Filter, exec ...core.DBExecutor) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance, exec ...core.DBExecutor) (Attendance, error)
		DeleteAttendance(ctx context.Context, id int, exec ...core.DBExecutor) error
		// CountByStatus counts the records of a user in [from, to), optionally for a single subject.
		CountByStatus(ctx context.Context, userID, subjectID int, from, to core.Date, exec ...core.DBExecutor) (map[string]int, error)
	}

	ServiceInterface interface {
		Record(ctx context.Context, ra RecordAttendance, marker user.User) (att Attendance, created bool, err error)
		Query(ctx context.Context, filter *Filter) ([]Attendance, error)
		Stats(ctx context.Context, q StatsQuery) (Stats, error)
	}

	Service struct {
		db        core.DB
		repo      Repository
		usrRepo   user.Repository
		subjRepo  school.SubjectRepository
		classRepo school.ClassLevelRepository
		mailSvc   core.EmailService
		logger    core.Logger
	}

	absenceNoticeData struct {
		StudentName string
		SubjectName string
		Date        string
		Notes       string
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	usrRepo user.Repository,
	subjRepo school.SubjectRepository,
	classRepo school.ClassLevelRepository,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		usrRepo:   usrRepo,
		subjRepo:  subjRepo,
		classRepo: classRepo,
		mailSvc:   mailSvc,
		logger:    logger,
	}
}

func (ra *RecordAttendance) Validate(validate *validator.Validate) error {
	ra.Clean()
	return validate.Struct(ra)
}

func (q *StatsQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(q)
}

// checkRefs loads the marked user and the subject, and defaults the class level to the subject's.
func (svc *Service) checkRefs(ctx context.Context, ra *RecordAttendance) (user.User, school.Subject, error) {
	var flds []core.FieldError

	usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: ra.UserID})
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, school.Subject{}, errors.Wrap(err, "finding user")
		}
		flds = append(flds, core.FieldError{Field: "user_id", Error: errUnknownUser})
	}

	subj, err := svc.subjRepo.GetSubject(ctx, ra.SubjectID)
	if err != nil {
		if !core.IsNotFound(err) {
			return user.User{}, school.Subject{}, errors.Wrap(err, "finding subject")
		}
		flds = append(flds, core.FieldError{Field: "subject_id", Error: errUnknownSubject})
	} else if ra.ClassLevelID == 0 {
		ra.ClassLevelID = subj.ClassLevelID
	}

	if ra.ClassLevelID != 0 && ra.ClassLevelID != subj.ClassLevelID {
		if _, err = svc.classRepo.GetClassLevel(ctx, ra.ClassLevelID); err != nil {
			if !core.IsNotFound(err) {
				return user.User{}, school.Subject{}, errors.Wrap(err, "finding class level")
			}
			flds = append(flds, core.FieldError{Field: "class_level_id", Error: errUnknownClassLevel})
		}
	}

	if len(flds) > 0 {
		return user.User{}, school.Subject{}, core.NewValidationError(nil, flds...)
	}
	return usr, subj, nil
}

// Record creates or replaces the attendance of a user for a subject on a date.
// created is false when an existing record was replaced; the record keeps its ID.
func (svc *Service) Record(ctx context.Context, ra RecordAttendance, marker user.User) (Attendance, bool, error) {
	usr, subj, err := svc.checkRefs(ctx, &ra)
	if err != nil {
		return Attendance{}, false, err
	}

	var (
		att     Attendance
		created bool
	)
	notes := null.NewString(ra.Notes, ra.Notes != "")

	err = core.WithinTx(ctx, svc.db, func(tx core.DBExecutor) error {
		existing, err := svc.repo.FindAttendance(ctx, ra.UserID, ra.SubjectID, ra.Date, tx)
		switch {
		case err == nil:
			existing.ClassLevelID = ra.ClassLevelID
			existing.Status = ra.Status
			existing.MarkedBy = marker.ID
			existing.Notes = notes
			att, err = svc.repo.UpdateAttendance(ctx, existing, tx)
			return errors.Wrap(err, "updating attendance")
		case core.IsNotFound(err):
			created = true
			att, err = svc.repo.CreateAttendance(ctx, Attendance{
				UserID:       ra.UserID,
				SubjectID:    ra.SubjectID,
				ClassLevelID: ra.ClassLevelID,
				Date:         ra.Date,
				Status:       ra.Status,
				MarkedBy:     marker.ID,
				Notes:        notes,
			}, tx)
			if errors.Cause(err) == ErrAttendanceExists {
				return core.NewConflictError(err, core.FieldError{Field: "date", Error: ErrAttendanceExists.Error()})
			}
			return errors.Wrap(err, "creating attendance")
		default:
			return errors.Wrap(err, "finding attendance")
		}
	})
	if err != nil {
		return Attendance{}, false, err
	}

	if att.Status == StatusAbsent && !att.NotificationSent && usr.IsStudent() && usr.Email != "" {
		if att, err = svc.notifyAbsence(ctx, att, usr, subj); err != nil {
			return Attendance{}, false, err
		}
	}
	return att, created, nil
}

// notifyAbsence emails the absence notice to the student and flags the record once the notice is sent.
// A failed send leaves the record unflagged so that the next Record retries it.
func (svc *Service) notifyAbsence(ctx context.Context, att Attendance, student user.User, subj school.Subject) (Attendance, error) {
	err := svc.mailSvc.SendMessage(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName, Address: student.Email}},
		Subject:      "Absence notice",
		TemplateName: "absence_notice",
		TemplateData: absenceNoticeData{
			StudentName: student.FullName,
			SubjectName: subj.Name,
			Date:        att.Date.String(),
			Notes:       att.Notes.String,
		},
	})
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("sending absence notice of attendance %d: %v", att.ID, err), err)
		return att, nil
	}

	att.NotificationSent = true
	att, err = svc.repo.UpdateAttendance(ctx, att)
	return att, errors.Wrap(err, "flagging absence notification")
}

func (svc *Service) Query(ctx context.Context, filter *Filter) ([]Attendance, error) {
	return svc.repo.QueryAttendance(ctx, filter)
}

// Stats summarizes the attendance of a user for the requested month.
func (svc *Service) Stats(ctx context.Context, q StatsQuery) (Stats, error) {
	if _, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: q.UserID}); err != nil {
		return Stats{}, err
	}

	from := core.NewDate(q.Year, time.Month(q.Month), 1)
	to := from.AddMonths(1)
	counts, err := svc.repo.CountByStatus(ctx, q.UserID, q.SubjectID, from, to)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting attendance")
	}

	stats := Stats{
		UserID:      q.UserID,
		SubjectID:   null.NewInt(q.SubjectID, q.SubjectID != 0),
		Month:       q.Month,
		Year:        q.Year,
		PresentDays: counts[StatusPresent],
		AbsentDays:  counts[StatusAbsent],
		LateDays:    counts[StatusLate],
	}
	stats.Percentage = Percentage(stats.PresentDays, stats.AbsentDays, stats.LateDays)
	return stats, nil
}
