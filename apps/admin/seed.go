package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	"github.com/trezcool/darasa/core/user"
)

type (
	seedSubject struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Teacher     string `yaml:"teacher"` // username
	}

	seedClassLevel struct {
		Name         string        `yaml:"name"`
		Description  string        `yaml:"description"`
		AcademicYear int           `yaml:"academic_year"`
		Subjects     []seedSubject `yaml:"subjects"`
	}

	// seedData is the layout of a seed file. Entries matching existing rows are reused.
	seedData struct {
		ClassLevels []seedClassLevel `yaml:"class_levels"`
		Users       []newAccount     `yaml:"users"`
	}
)

func loadSeedData(fpath string) (*seedData, error) {
	raw, err := os.ReadFile(fpath)
	if err != nil {
		return nil, errors.Wrap(err, "reading seed file")
	}
	var data seedData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "parsing seed file")
	}
	return &data, nil
}

// seed loads the school described in fpath inside a single transaction.
func (cli *commandLine) seed(fpath string) error {
	data, err := loadSeedData(fpath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return core.WithinTx(ctx, cli.db, func(tx core.DBExecutor) error {
		classes := make(map[string]school.ClassLevel, len(data.ClassLevels))
		for _, scl := range data.ClassLevels {
			cl, err := cli.seedClassLevel(ctx, scl, tx)
			if err != nil {
				return err
			}
			classes[cl.Name] = cl
		}

		teachers := make(map[string]user.User)
		for _, acc := range data.Users {
			if acc.Class != "" {
				cl, ok := classes[core.CleanString(acc.Class)]
				if !ok {
					return fmt.Errorf("%s: unknown class level %q", acc.Username, acc.Class)
				}
				acc.classID = null.IntFrom(cl.ID)
				acc.academicYear = null.IntFrom(cl.AcademicYear)
			}
			usr, err := cli.addUser(acc, tx)
			if err != nil {
				return errors.Wrapf(err, "seeding user %q", acc.Username)
			}
			if usr.IsTeacher() {
				teachers[usr.Username] = usr
			}
		}

		for _, scl := range data.ClassLevels {
			cl := classes[core.CleanString(scl.Name)]
			for _, ss := range scl.Subjects {
				if err := cli.seedSubject(ctx, cl, ss, teachers, tx); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (cli *commandLine) seedClassLevel(ctx context.Context, scl seedClassLevel, tx core.DBExecutor) (school.ClassLevel, error) {
	name := core.CleanString(scl.Name)
	if name == "" || scl.AcademicYear == 0 {
		return school.ClassLevel{}, fmt.Errorf("class level %q: name and academic_year are required", scl.Name)
	}

	existing, err := cli.classRepo.QueryClassLevels(ctx, &school.ClassLevelFilter{AcademicYear: scl.AcademicYear}, tx)
	if err != nil {
		return school.ClassLevel{}, err
	}
	for _, cl := range existing {
		if cl.Name == name {
			return cl, nil
		}
	}

	cl, err := cli.classRepo.CreateClassLevel(ctx, school.ClassLevel{
		Name:         name,
		Description:  core.CleanString(scl.Description),
		AcademicYear: scl.AcademicYear,
	}, tx)
	return cl, errors.Wrapf(err, "seeding class level %q", name)
}

func (cli *commandLine) seedSubject(
	ctx context.Context,
	cl school.ClassLevel,
	ss seedSubject,
	teachers map[string]user.User,
	tx core.DBExecutor,
) error {
	name := core.CleanString(ss.Name)
	if name == "" {
		return fmt.Errorf("%s: subject name is required", cl.Name)
	}

	var teacherID null.Int
	if ss.Teacher != "" {
		teacher, ok := teachers[core.CleanString(ss.Teacher, true /* lower */)]
		if !ok {
			return fmt.Errorf("subject %q: unknown teacher %q", name, ss.Teacher)
		}
		teacherID = null.IntFrom(teacher.ID)
	}

	existing, err := cli.subjRepo.QuerySubjects(ctx, &school.SubjectFilter{ClassLevelID: cl.ID}, tx)
	if err != nil {
		return err
	}
	for _, subj := range existing {
		if subj.Name == name {
			subj.TeacherID = teacherID
			_, err := cli.subjRepo.UpdateSubject(ctx, subj, tx)
			return errors.Wrapf(err, "seeding subject %q", name)
		}
	}

	_, err = cli.subjRepo.CreateSubject(ctx, school.Subject{
		Name:         name,
		Description:  null.NewString(core.CleanString(ss.Description), ss.Description != ""),
		TeacherID:    teacherID,
		ClassLevelID: cl.ID,
	}, tx)
	return errors.Wrapf(err, "seeding subject %q", name)
}
