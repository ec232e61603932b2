package cli

import (
	"flag"
	"fmt"
)

type Command int

const (
	CmdRun Command = iota
	CmdStatus
	CmdEvaluate
	CmdConclude
	CmdConfigTest
)

type Args struct {
	Cmd    Command
	Config string
	ID     string
}

func Parse() Args {
	var (
		run      = flag.Bool("run", false, "run manager")
		status   = flag.Bool("status", false, "print experiments and last outcomes")
		evaluate = flag.String("evaluate", "", "evaluate experiment id and print the report")
		conclude = flag.String("conclude", "", "conclude experiment id")
		cfg      = flag.String("config", "config.yaml", "config path")
		test     = flag.Bool("config-test", false, "validate config")
	)
	flag.Parse()
	out := Args{Config: *cfg}
	switch {
	case *run:
		out.Cmd = CmdRun
	case *status:
		out.Cmd = CmdStatus
	case *evaluate != "":
		out.Cmd = CmdEvaluate
		out.ID = *evaluate
	case *conclude != "":
		out.Cmd = CmdConclude
		out.ID = *conclude
	case *test:
		out.Cmd = CmdConfigTest
	default:
		fmt.Println("Use -run | -status | -evaluate <id> | -conclude <id> | -config-test")
		out.Cmd = CmdStatus
	}
	return out
}
