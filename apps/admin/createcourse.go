package main

import (
	"context"
	"fmt"

	"github.com/trezcool/ujuzi/core/course"
)

func (cli *commandLine) createCourse(name, imageRef string) error {
	c, err := cli.courseSvc.Create(context.Background(), course.NewCourse{Name: name, ImageRef: imageRef})
	if err != nil {
		return err
	}
	fmt.Printf("course %q created (id %d)\n", c.Name, c.ID)
	return nil
}
