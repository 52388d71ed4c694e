// Package instances discovers the MySQL instances to poll from a my.cnf-style file.
package instances

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

const clientPrefix = "client"

// ConfigError reports an instance configuration source that cannot be read.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cannot load instance configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Option is a key/value pair from a section other than socket and port.
type Option struct {
	Key   string
	Value string
}

// Instance is one section of the configuration file.
type Instance struct {
	Name   string
	Socket string
	Port   string
	Extra  []Option
}

// Tag renders the instance as it prefixes every session line.
func (i Instance) Tag() string {
	return fmt.Sprintf("{%s, %s}", i.Socket, i.Port)
}

// IsClient reports whether the section is a client-only section.
func (i Instance) IsClient() bool {
	return strings.HasPrefix(i.Name, clientPrefix)
}

// Registry holds the parsed sections in file order.
type Registry struct {
	path      string
	instances []Instance
}

// isSocket is a variable so tests can stand in for live server sockets.
var isSocket = func(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSocket != 0
}

// Load parses path. Keys outside any section and !include directives are ignored.
func Load(path string) (*Registry, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	r := &Registry{path: path}
	for _, sec := range f.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		inst := Instance{Name: sec.Name()}
		for _, key := range sec.Keys() {
			if strings.HasPrefix(key.Name(), "!") {
				continue
			}
			switch key.Name() {
			case "socket":
				inst.Socket = key.String()
			case "port":
				inst.Port = key.String()
			default:
				inst.Extra = append(inst.Extra, Option{Key: key.Name(), Value: key.String()})
			}
		}
		r.instances = append(r.instances, inst)
	}
	return r, nil
}

// Path returns the file the registry was loaded from.
func (r *Registry) Path() string {
	return r.path
}

// Instances returns every section, connectable or not.
func (r *Registry) Instances() []Instance {
	out := make([]Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Connectable returns the instances worth polling right now: not a client
// section, socket and port both set, and the socket currently live. The
// socket check runs on every call since servers come and go between ticks.
func (r *Registry) Connectable() []Instance {
	var out []Instance
	for _, inst := range r.instances {
		if inst.Port == "" || inst.Socket == "" {
			continue
		}
		if inst.IsClient() {
			continue
		}
		if !isSocket(inst.Socket) {
			continue
		}
		out = append(out, inst)
	}
	return out
}
