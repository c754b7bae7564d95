package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/edulive/classpulse/core/session"
	reportsvc "github.com/edulive/classpulse/services/report"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	svc *session.Service
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  show                                - print the stored session snapshot")
	fmt.Fprintln(cli.out, "  reset                               - discard the session and start fresh")
	fmt.Fprintln(cli.out, "  export -id ASSESSMENT [-out FILE]   - write an assessment report workbook")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportID := exportCmd.String("id", "", "The assessment id to export.")
	exportOut := exportCmd.String("out", "report.xlsx", "The output file path.")

	switch args[1] {
	case "show":
		return cli.show()
	case "reset":
		return cli.reset()
	case "export":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportID == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.export(*exportID, *exportOut)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) show() error {
	data, err := json.MarshalIndent(cli.svc.Snapshot(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding snapshot")
	}
	fmt.Fprintln(cli.out, string(data))
	return nil
}

func (cli *commandLine) reset() error {
	cli.svc.Reset()
	fmt.Fprintln(cli.out, "session reset")
	return nil
}

func (cli *commandLine) export(id, out string) error {
	state := cli.svc.Snapshot()
	assessment, ok := state.Assessment(id)
	if !ok {
		return session.ErrNotFound
	}

	res, err := cli.svc.Results(id)
	if err != nil {
		return err
	}
	att, err := cli.svc.Attendance(id)
	if err != nil {
		return err
	}

	buf, err := reportsvc.AssessmentWorkbook(assessment, res, att)
	if err != nil {
		return err
	}
	if err = os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	fmt.Fprintf(cli.out, "report written to %s\n", out)
	return nil
}
