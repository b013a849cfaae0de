package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core/course"
)

// addMaterial stores the file at `fp` and attaches it to a course.
func (cli *commandLine) addMaterial(courseID, fp, name string) error {
	content, err := readFileFunc(fp)
	if err != nil {
		return errors.Wrap(err, "reading material file")
	}
	m, err := cli.courseSvc.AddMaterial(context.Background(), courseID, name, course.Upload{
		Filename: filepath.Base(fp),
		Content:  content,
	})
	if err != nil {
		return err
	}
	fmt.Printf("added material %q (%s) to course %s\n", m.Name, m.ID, m.CourseID)
	return nil
}
