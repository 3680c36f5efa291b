package fingerprint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vulntor/sslprint/pkg/flow"
)

// ParseP0F reads signatures from p0f.fp syntax. Only [ssl:request] and
// [ssl:response] sections are used; other modules are skipped.
//
//	[ssl:request]
//	label = s:!:Chrome:11 or newer
//	sys   = Windows,@unix
//	sig   = 3.1:c02b,*,a:?0,ff01,a,b:
func ParseP0F(r io.Reader, db *Database) error {
	var (
		inSSL    bool
		dir      flow.Direction
		label    *p0fLabel
		labelIDs uint32
		lineNo   int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == ';' {
			continue
		}

		if line[0] == '[' {
			if !strings.HasSuffix(line, "]") {
				return NewConfigError(lineNo, fmt.Errorf("unterminated section header %q", line))
			}
			module, direction, ok := strings.Cut(line[1:len(line)-1], ":")
			inSSL = module == "ssl"
			label = nil
			if !inSSL {
				continue
			}
			switch {
			case !ok:
				return NewConfigError(lineNo, errors.New("ssl section needs a direction"))
			case direction == "request":
				dir = flow.ToServer
			case direction == "response":
				dir = flow.ToClient
			default:
				return NewConfigError(lineNo, fmt.Errorf("unknown ssl direction %q", direction))
			}
			continue
		}

		if !inSSL {
			continue
		}

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return NewConfigError(lineNo, fmt.Errorf("expected key = value, got %q", line))
		}
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)

		switch key {
		case "label":
			l, err := parseP0FLabel(val)
			if err != nil {
				return NewConfigError(lineNo, err)
			}
			l.id = labelIDs
			l.nameID = db.Names().Intern(l.name)
			labelIDs++
			label = l

		case "sys":
			if label == nil {
				return NewConfigError(lineNo, errors.New("sys without a preceding label"))
			}
			if label.class != ClassApp {
				return NewConfigError(lineNo, errors.New("sys is only valid for application labels"))
			}
			label.systems = nil
			for _, s := range strings.Split(val, ",") {
				if s = strings.TrimSpace(s); s != "" {
					label.systems = append(label.systems, db.Names().Intern(s))
				}
			}

		case "sig":
			if label == nil {
				return NewConfigError(lineNo, errors.New("sig without a preceding label"))
			}
			if err := db.Register(dir, label.class, label.nameID, label.flavor, label.id,
				label.systems, val, lineNo, label.generic); err != nil {
				return err
			}

		default:
			return NewConfigError(lineNo, fmt.Errorf("unknown key %q", key))
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	return nil
}

type p0fLabel struct {
	id      uint32
	class   Class
	name    string
	nameID  uint32
	flavor  string
	generic bool
	systems []uint32
}

// parseP0FLabel splits "type:class:name:flavor".
func parseP0FLabel(s string) (*p0fLabel, error) {
	parts := strings.SplitN(s, ":", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("label %q: want type:class:name:flavor", s)
	}

	l := &p0fLabel{name: parts[2], flavor: parts[3]}
	switch parts[0] {
	case "s":
	case "g":
		l.generic = true
	default:
		return nil, fmt.Errorf("label %q: type must be s or g", s)
	}

	if parts[1] == "!" {
		l.class = ClassApp
	} else {
		l.class = ClassOS
	}

	if l.name == "" {
		return nil, fmt.Errorf("label %q: empty name", s)
	}
	return l, nil
}
