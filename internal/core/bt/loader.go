package bt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/crowdsim/internal/core/observability/log"
)

var (
	ErrUnknownNode     = errors.New("unknown node in tree definition")
	ErrUnknownLeaf     = errors.New("unknown leaf")
	ErrUnsupportedType = errors.New("unsupported node type")
	ErrCycle           = errors.New("tree definition contains a cycle")
)

// Config describes a tree in JSON or YAML. Nodes are referenced by name so a definition
// can be written flat:
//
//	root: main
//	nodes:
//	  main:  {type: selector, children: [greet, wander]}
//	  greet: {type: sequence, children: [near, wave]}
//	  near:  {type: condition, condition: subject-nearby}
//	  wave:  {type: action, action: greet-subject}
//	  wander: {type: action, action: move-to-next-destination}
type Config struct {
	Root  string                `json:"root" yaml:"root"`
	Nodes map[string]ConfigNode `json:"nodes" yaml:"nodes"`
}

type ConfigNode struct {
	Type      string         `json:"type" yaml:"type"`
	Children  []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Action    string         `json:"action,omitempty" yaml:"action,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	// Policy is read by selectors only: "continue" or "claim". params.policy is also accepted.
	Policy string         `json:"policy,omitempty" yaml:"policy,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoadJSON loads a tree definition from a JSON reader.
func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode tree json: %w", err)
	}
	return &c, nil
}

// LoadYAML loads a tree definition from a YAML reader.
func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode tree yaml: %w", err)
	}
	return &c, nil
}

// BuildOptions tune Config.Build.
type BuildOptions struct {
	// DefaultPolicy applies to selectors that name no policy.
	DefaultPolicy SelectorPolicy
	Logger        log.Log
}

// Build instantiates the tree using leaves from reg. Nodes referenced more than once are
// shared, which is safe because nodes carry no per-tick state.
func (c *Config) Build(reg Registry, opts BuildOptions) (*Tree, error) {
	if c.Root == "" {
		return nil, ErrNilRoot
	}
	logger := log.OrNop(opts.Logger)
	created := make(map[string]Node)
	visiting := make(map[string]bool)

	var build func(name string) (Node, error)
	buildChildren := func(nc ConfigNode) ([]Node, error) {
		children := make([]Node, 0, len(nc.Children))
		for _, chName := range nc.Children {
			ch, err := build(chName)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		return children, nil
	}

	build = func(name string) (Node, error) {
		if n, ok := created[name]; ok {
			return n, nil
		}
		if visiting[name] {
			return nil, fmt.Errorf("%w at %s", ErrCycle, name)
		}
		nc, ok := c.Nodes[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
		}
		visiting[name] = true
		defer delete(visiting, name)

		var (
			node Node
			err  error
		)
		switch strings.ToLower(nc.Type) {
		case "sequence":
			var children []Node
			if children, err = buildChildren(nc); err != nil {
				return nil, err
			}
			node, err = NewSequence(name, children...)
		case "selector":
			policy := opts.DefaultPolicy
			raw := nc.Policy
			if raw == "" {
				raw, _ = nc.Params["policy"].(string)
			}
			if raw != "" {
				if policy, err = ParseSelectorPolicy(raw); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
			var children []Node
			if children, err = buildChildren(nc); err != nil {
				return nil, err
			}
			node, err = NewSelector(name, policy, children...)
		case "action":
			var fn ActionFunc
			if fn, err = reg.NewAction(nc.Action, nc.Params); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			node = NewAction(name, fn, WithLogger(logger))
		case "condition":
			var pred Predicate
			if pred, err = reg.NewCondition(nc.Condition, nc.Params); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			node = NewCondition(name, pred, WithLogger(logger))
		default:
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedType, nc.Type, name)
		}
		if err != nil {
			return nil, err
		}
		created[name] = node
		return node, nil
	}

	root, err := build(c.Root)
	if err != nil {
		return nil, err
	}
	return NewTree(root)
}
