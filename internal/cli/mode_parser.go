package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeAPI, "server", "http":
		return ModeAPI, true
	case ModeWorker, "consumer", "order-worker":
		return ModeWorker, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `api --port=8001`
//
// An unknown --mode value is reported as an error.
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "--mode=") {
			mode = strings.TrimPrefix(arg, "--mode=")
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, nil
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}

	return m, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // switch the color to cyan

	fmt.Fprintln(w, `Usage:
  ./buildflow --mode=<mode> [flags]

Modes:
  api       HTTP API for the catalog and for placing orders
  worker    RabbitMQ consumer that prices and finalizes orders

Examples:
  ./buildflow --mode=api --port=8000 --max-concurrent=50
  ./buildflow --mode=api --config=config.yaml
  ./buildflow --mode=worker`)

	fmt.Fprint(w, "\033[0m") // switch back to normal
}

func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./buildflow --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
