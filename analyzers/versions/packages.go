package versions

import (
	"bufio"
	"bytes"
	"strings"
)

// Manifest maps a package name to its version.
type Manifest map[string]string

// ParseInstalled reads a local package listing. It understands the table
// printed by `dpkg-query -l` and plain "name version" lines. The format is
// chosen once per payload: the status column is only stripped when the
// payload carries the dpkg header or every row looks like a dpkg row.
func ParseInstalled(data []byte) Manifest {
	rows := listingRows(data)
	dpkg := isDpkgListing(rows)

	m := Manifest{}
	for _, fields := range rows {
		if dpkg {
			if len(fields) < 3 || !isDpkgStatus(fields[0]) {
				continue
			}
			fields = fields[1:]
		}
		if len(fields) < 2 {
			continue
		}
		m[stripArch(fields[0])] = fields[1]
	}
	return m
}

func listingRows(data []byte) [][]string {
	var rows [][]string
	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		if fields := strings.Fields(s.Text()); len(fields) > 0 {
			rows = append(rows, fields)
		}
	}
	return rows
}

// isDpkgListing reports whether rows come from dpkg-query -l, either with
// its "||/ Name" and "+++-" header or as bare status rows.
func isDpkgListing(rows [][]string) bool {
	for _, fields := range rows {
		if strings.HasPrefix(fields[0], "+++-") || fields[0] == "||/" {
			return true
		}
	}
	data := 0
	for _, fields := range rows {
		if len(fields) < 2 {
			continue
		}
		if len(fields) < 3 || !isDpkgStatus(fields[0]) {
			return false
		}
		data++
	}
	return data > 0
}

// isDpkgStatus matches the two or three letter desired/status/error column of
// dpkg-query -l, e.g. "ii", "rc", "iHR".
func isDpkgStatus(s string) bool {
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	if !strings.ContainsRune("uirhp", rune(s[0])) {
		return false
	}
	return strings.ContainsRune("ncHUFWti", rune(s[1]))
}

func stripArch(name string) string {
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i]
	}
	return name
}

// ParseReference reads a repository index in Debian control format
// ("Package:"/"Version:" stanzas). Indexes without stanzas fall back to
// "name version" lines. A package listed more than once keeps its last
// version.
func ParseReference(data []byte) Manifest {
	m := Manifest{}
	var pkg, ver string
	stanzas := false

	flush := func() {
		if pkg != "" && ver != "" {
			m[pkg] = ver
		}
		pkg, ver = "", ""
	}

	s := bufio.NewScanner(bytes.NewReader(data))
	s.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for s.Scan() {
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch key {
		case "Package":
			stanzas = true
			pkg = strings.TrimSpace(value)
		case "Version":
			ver = strings.TrimSpace(value)
		}
	}
	flush()

	if stanzas {
		return m
	}
	return ParseInstalled(data)
}
