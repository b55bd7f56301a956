package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/student"
)

type exportData struct {
	Rooms     []room.Room       `json:"rooms"`
	Inventory room.Inventory    `json:"inventory"`
	Students  []student.Student `json:"students"`
}

func (cli *commandLine) seed() error {
	ctx := context.Background()
	if err := cli.rooms.EnsureSample(ctx); err != nil {
		return err
	}
	rooms, err := cli.rooms.Rooms(ctx)
	if err != nil {
		return err
	}
	inv, err := cli.rooms.Inventory(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%d rooms, %d facility types\n", len(rooms), len(inv.Facilities()))
	return nil
}

func (cli *commandLine) export(path string, all bool) error {
	ctx := context.Background()
	students, err := cli.students.List(ctx)
	if err != nil {
		return err
	}

	var v interface{} = students
	if all {
		data := exportData{Students: students}
		if data.Rooms, err = cli.rooms.Rooms(ctx); err != nil {
			return err
		}
		if data.Inventory, err = cli.rooms.Inventory(ctx); err != nil {
			return err
		}
		v = data
	}

	out := cli.out
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating export file")
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding export")
}

func (cli *commandLine) importStudents(path string, strict, dryRun bool) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer func() { _ = f.Close() }()

	candidates, err := decodeStudents(f)
	if err != nil {
		return err
	}

	before, after, err := cli.students.Import(context.Background(), candidates, strict, dryRun)
	if err != nil {
		return err
	}
	if dryRun {
		diff, err := studentsDiff(before, after)
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(cli.out, "no changes")
			return nil
		}
		fmt.Fprint(cli.out, diff)
		return nil
	}
	fmt.Fprintf(cli.out, "imported %d records, %d students registered\n", len(candidates), len(after))
	return nil
}

func (cli *commandLine) clear() error {
	if err := cli.gw.Wipe(context.Background(), ""); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "all data cleared")
	return nil
}

func decodeStudents(r io.Reader) ([]student.NewStudent, error) {
	var candidates []student.NewStudent
	if err := json.NewDecoder(r).Decode(&candidates); err != nil {
		return nil, errors.Wrap(err, "decoding import file")
	}
	return candidates, nil
}

// studentsDiff is the unified diff between the indented JSON of before and after.
func studentsDiff(before, after []student.Student) (string, error) {
	a, err := json.MarshalIndent(before, "", "  ")
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(after, "", "  ")
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "current",
		ToFile:   "imported",
		Context:  2,
	})
}
