package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/academic"
)

func (cli *commandLine) seed(studentID, file string, mock bool) error {
	ctx := context.Background()

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return errors.Wrap(err, "opening seed file")
		}
		defer func() { _ = f.Close() }()

		s, err := academic.LoadSeed(f, cli.validate)
		if err != nil {
			return err
		}
		n, err := s.Apply(ctx, cli.records)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "seeded %d records from %s\n", n, file)
	}

	if studentID != "" {
		ids, err := cli.records.Courses.SeedInitialCourses(ctx, studentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "enrolled %s in %d courses\n", studentID, len(ids))
	}

	if mock {
		seeded, err := cli.records.Courses.SeedMockCourses(ctx)
		if err != nil {
			return err
		}
		if seeded {
			fmt.Fprintln(cli.out, "seeded the mock courses")
		} else {
			fmt.Fprintln(cli.out, "courses already exist, mock courses skipped")
		}
	}
	return nil
}
