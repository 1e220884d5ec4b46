package metadata

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// LoadLines reads a text file of search terms or handles, one per line,
// trimming whitespace and skipping blank lines.
func LoadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "metadata: open %s", path)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, eris.Wrapf(sc.Err(), "metadata: read %s", path)
}
