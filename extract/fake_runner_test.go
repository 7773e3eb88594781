package extract

import (
	"fmt"
	"strings"
)

// fakeRunner answers build-tool commands from a canned table, keyed by
// the space-joined argument list.
type fakeRunner struct {
	responses map[string][]string
	calls     [][]string
}

func (f *fakeRunner) Run(args ...string) ([]string, error) {
	f.calls = append(f.calls, args)
	key := strings.Join(args, " ")
	lines, ok := f.responses[key]
	if !ok {
		return nil, fmt.Errorf("unexpected command: %s", key)
	}
	return lines, nil
}
