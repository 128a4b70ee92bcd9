package main

import (
	"context"
	"fmt"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

// addUser signs up a new identity and its profile. Students are enrolled in the starter courses.
func (cli *commandLine) addUser(email, name, role, pwd string) error {
	ctx := context.Background()
	svc := auth.NewService(
		cli.dir.NewClient(),
		cli.profiles,
		cli.validate,
		auth.WithTimeout(cli.conf.Auth.Timeout),
	)

	prof, err := svc.SignUp(ctx, email, pwd, user.NewProfile{Role: user.Role(role), DisplayName: name})
	if err != nil {
		return err
	}
	if prof.IsStudent() {
		if _, err := cli.records.Courses.SeedInitialCourses(ctx, prof.UID); err != nil {
			return err
		}
	}
	fmt.Fprintf(cli.out, "created %s %s (uid %s)\n", prof.Role(), prof.Email, prof.UID)
	return nil
}
