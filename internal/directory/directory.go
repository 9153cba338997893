// Package directory holds the employees and projects that billing rows refer
// to. Import files name them loosely (id, username, display name), so the
// directory resolves identifiers the way people type them.
package directory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/billing/internal/billing"
)

// Directory is an immutable set of users and projects. It is safe for
// concurrent use.
type Directory struct {
	users    []billing.User
	projects []billing.Project

	userByID    map[string]int
	projectByID map[string]int
}

// fileFormat is the YAML layout of a directory file.
type fileFormat struct {
	Users    []billing.User    `yaml:"users"`
	Projects []billing.Project `yaml:"projects"`
}

// New builds a directory, rejecting duplicate ids and unknown billing types.
func New(users []billing.User, projects []billing.Project) (*Directory, error) {
	d := &Directory{
		users:       append([]billing.User(nil), users...),
		projects:    append([]billing.Project(nil), projects...),
		userByID:    make(map[string]int, len(users)),
		projectByID: make(map[string]int, len(projects)),
	}

	for i, u := range d.users {
		if u.ID == "" || u.Username == "" {
			return nil, fmt.Errorf("user %d: id and username are required", i+1)
		}
		if _, dup := d.userByID[u.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		d.userByID[u.ID] = i
	}

	for i, p := range d.projects {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("project %d: id and name are required", i+1)
		}
		if _, dup := d.projectByID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate project id %q", p.ID)
		}
		switch p.BillingType {
		case billing.BillingHourly, billing.BillingCountBased:
		default:
			return nil, fmt.Errorf("project %q: unknown billing type %q", p.ID, p.BillingType)
		}
		d.projectByID[p.ID] = i
	}

	return d, nil
}

// LoadFile reads a YAML directory file.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML directory data.
func Parse(data []byte) (*Directory, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return New(f.Users, f.Projects)
}

// MarshalYAML encodes the directory in the file layout read by Parse.
func (d *Directory) MarshalYAML() (any, error) {
	return fileFormat{Users: d.users, Projects: d.projects}, nil
}

// Users returns a copy of all users.
func (d *Directory) Users() []billing.User {
	return append([]billing.User(nil), d.users...)
}

// Projects returns a copy of all projects.
func (d *Directory) Projects() []billing.Project {
	return append([]billing.Project(nil), d.projects...)
}

// User looks a user up by exact id.
func (d *Directory) User(id string) (billing.User, bool) {
	i, ok := d.userByID[id]
	if !ok {
		return billing.User{}, false
	}
	return d.users[i], true
}

// Project looks a project up by exact id.
func (d *Directory) Project(id string) (billing.Project, bool) {
	i, ok := d.projectByID[id]
	if !ok {
		return billing.Project{}, false
	}
	return d.projects[i], true
}

// ResolveUser finds a user by id, username or "first last". The last two
// ignore case.
func (d *Directory) ResolveUser(ident string) (billing.User, bool) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return billing.User{}, false
	}
	if u, ok := d.User(ident); ok {
		return u, true
	}
	for _, u := range d.users {
		if strings.EqualFold(u.Username, ident) || strings.EqualFold(u.FullName(), ident) {
			return u, true
		}
	}
	return billing.User{}, false
}

// ResolveProject finds a project by id or, ignoring case, by name.
func (d *Directory) ResolveProject(ident string) (billing.Project, bool) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return billing.Project{}, false
	}
	if p, ok := d.Project(ident); ok {
		return p, true
	}
	for _, p := range d.projects {
		if strings.EqualFold(p.Name, ident) {
			return p, true
		}
	}
	return billing.Project{}, false
}
