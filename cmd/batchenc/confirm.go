package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"batchenc/internal/encoding"
	"batchenc/internal/services"
)

type confirmOptions struct {
	assumeYes           bool
	allowOverwriteInput bool
	interactive         bool
	in                  io.Reader
	out                 io.Writer
}

// confirmRun is the gate in front of Start. Outputs that resolve to their own
// input are refused unless explicitly allowed. A disabled or empty suffix
// needs a yes, either typed at the prompt or passed as --yes.
func confirmRun(inputs []string, settings encoding.Settings, opts confirmOptions) error {
	var clobbered []string
	for _, input := range inputs {
		if encoding.OverwriteRisk(input, encoding.BuildOutputPath(input, settings)) {
			clobbered = append(clobbered, input)
		}
	}
	if len(clobbered) > 0 && !opts.allowOverwriteInput {
		return services.Wrap(services.ErrValidation, "encode", "confirm",
			fmt.Sprintf("%d output(s) would replace their own input (first: %s); set a suffix or an output directory, or pass --allow-overwrite-input",
				len(clobbered), clobbered[0]), nil)
	}
	if settings.HasEffectiveSuffix() && len(clobbered) == 0 {
		return nil
	}
	if opts.assumeYes {
		return nil
	}
	if !opts.interactive {
		return services.Wrap(services.ErrValidation, "encode", "confirm",
			"suffix is disabled or empty, so outputs may overwrite files with the same name; rerun with --yes to continue", nil)
	}

	fmt.Fprint(opts.out, "Suffix is disabled or empty. Output files will share their input's name and may overwrite existing files.\nContinue? [y/N] ")
	answer, err := bufio.NewReader(opts.in).ReadString('\n')
	if err != nil && answer == "" {
		return services.Wrap(services.ErrCancelled, "encode", "confirm", "no answer", nil)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return services.Wrap(services.ErrCancelled, "encode", "confirm", "aborted", nil)
	}
}

func isInteractive(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
