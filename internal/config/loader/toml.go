package loader

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// tomlCodec decodes with go-toml. go-toml cannot re-encode a document
// without sorting its tables, so TOML documents are read-only.
type tomlCodec struct{}

func (tomlCodec) decode(raw []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(raw, &config); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("line %d, column %d: %w", row, col, err)
		}
		return nil, err
	}
	return config, nil
}

// order walks the document's expressions and records, in order of first
// appearance, the child keys of the table at path. Children can be
// declared by table headers ([a.b.name]), dotted keys (name.x = 1) or
// inline tables (b = { name = {...} }).
func (tomlCodec) order(raw []byte, path []string) ([]string, error) {
	var (
		keys  []string
		seen  = make(map[string]bool)
		table []string
	)
	record := func(full []string) {
		if len(full) <= len(path) || !hasPrefix(full, path) {
			return
		}
		name := full[len(path)]
		if !seen[name] {
			seen[name] = true
			keys = append(keys, name)
		}
	}

	p := unstable.Parser{}
	p.Reset(raw)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = nodeKey(expr)
			record(table)
		case unstable.KeyValue:
			full := append(append([]string(nil), table...), nodeKey(expr)...)
			record(full)
			if equalPath(full, path) {
				if v := expr.Value(); v != nil && v.Kind == unstable.InlineTable {
					children := v.Children()
					for children.Next() {
						child := children.Node()
						if child.Kind == unstable.KeyValue {
							record(append(append([]string(nil), full...), nodeKey(child)...))
						}
					}
				}
			}
		}
	}
	if err := p.Error(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (tomlCodec) set([]byte, []string, any) ([]byte, error) {
	return nil, ErrNotWritable
}

func (tomlCodec) delete([]byte, []string) ([]byte, error) {
	return nil, ErrNotWritable
}

// nodeKey returns the dotted key parts of a table or key-value node.
func nodeKey(n *unstable.Node) []string {
	var parts []string
	it := n.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func hasPrefix(full, prefix []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i := range prefix {
		if full[i] != prefix[i] {
			return false
		}
	}
	return true
}

func equalPath(a, b []string) bool {
	return len(a) == len(b) && hasPrefix(a, b)
}
