// Package dashboard serves the per-role list and detail screens backed by the REST backend.
package dashboard

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/tutorhub/core/session"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrReadOnly        = errors.New("resource is read-only")
)

// Resource is one backend collection a role can browse.
type Resource struct {
	Name         string   `json:"name"`
	Path         string   `json:"-"`
	SearchFields []string `json:"search_fields"` // dotted paths into the record
	ReadOnly     bool     `json:"read_only"`
}

type registry map[session.Role]map[string]Resource

func newRegistry(resources map[session.Role][]Resource) registry {
	reg := make(registry, len(resources))
	for role, list := range resources {
		reg[role] = make(map[string]Resource, len(list))
		for _, res := range list {
			reg[role][res.Name] = res
		}
	}
	return reg
}

func (reg registry) lookup(role session.Role, name string) (Resource, error) {
	res, ok := reg[role][name]
	if !ok {
		return Resource{}, errors.Wrapf(ErrUnknownResource, "%s/%s", role, name)
	}
	return res, nil
}

func (reg registry) list(role session.Role) []Resource {
	out := make([]Resource, 0, len(reg[role]))
	for _, res := range reg[role] {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

var (
	nameEmail   = []string{"name", "email"}
	courseTutor = []string{"course_name", "course.name", "tutor_name", "tutor.name"}
	person      = []string{"student_name", "student.name", "tutor_name", "tutor.name"}
)

// DefaultResources maps every role to the collections of its dashboard.
var DefaultResources = map[session.Role][]Resource{
	session.RoleAdmin: {
		{Name: "students", Path: "/api/admin/students", SearchFields: append(nameEmail, "phone")},
		{Name: "tutors", Path: "/api/admin/tutors", SearchFields: append(nameEmail, "phone")},
		{Name: "courses", Path: "/api/admin/courses", SearchFields: []string{"name", "description"}},
		{Name: "offices", Path: "/api/admin/offices", SearchFields: []string{"name", "address", "location"}},
		{Name: "payments", Path: "/api/admin/payments", SearchFields: append([]string{"reference", "status"}, person...), ReadOnly: true},
		{Name: "withdrawals", Path: "/api/admin/withdrawals", SearchFields: []string{"tutor_name", "tutor.name", "status"}},
		{Name: "reviews", Path: "/api/admin/reviews", SearchFields: append([]string{"comment"}, person...)},
		{Name: "tutor-courses", Path: "/api/admin/tutor-courses", SearchFields: append([]string{"location"}, courseTutor...)},
		{Name: "classes", Path: "/api/admin/classes", SearchFields: append([]string{"title"}, courseTutor...)},
		{Name: "assignments", Path: "/api/admin/assignments", SearchFields: []string{"title", "course_name", "course.name"}},
		{Name: "cohubs", Path: "/api/admin/cohubs", SearchFields: []string{"name", "address", "location"}},
		{Name: "locations", Path: "/api/admin/locations", SearchFields: []string{"name"}},
	},
	session.RoleTutor: {
		{Name: "classes", Path: "/api/tutors/classes", SearchFields: []string{"title", "course_name", "course.name", "student_name", "student.name"}},
		{Name: "assignments", Path: "/api/tutors/assignments", SearchFields: []string{"title", "course_name", "course.name"}},
		{Name: "schedules", Path: "/api/tutors/schedules", SearchFields: []string{"title", "day", "course_name"}},
		{Name: "withdrawals", Path: "/api/tutors/withdrawals", SearchFields: []string{"status", "reference"}},
		{Name: "reviews", Path: "/api/tutors/reviews", SearchFields: []string{"comment", "student_name", "student.name"}, ReadOnly: true},
		{Name: "notifications", Path: "/api/tutors/notifications", SearchFields: []string{"title", "message"}},
		{Name: "tutor-courses", Path: "/api/tutors/tutor-courses", SearchFields: []string{"course_name", "course.name", "location"}},
	},
	session.RoleStudent: {
		{Name: "classes", Path: "/api/students/classes", SearchFields: []string{"title", "course_name", "course.name", "tutor_name", "tutor.name"}, ReadOnly: true},
		{Name: "assignments", Path: "/api/students/assignments", SearchFields: []string{"title", "course_name", "course.name"}},
		{Name: "payments", Path: "/api/students/payments", SearchFields: []string{"reference", "status", "course_name"}, ReadOnly: true},
		{Name: "schedules", Path: "/api/students/schedules", SearchFields: []string{"title", "day", "course_name"}, ReadOnly: true},
		{Name: "notifications", Path: "/api/students/notifications", SearchFields: []string{"title", "message"}},
		{Name: "reviews", Path: "/api/students/reviews", SearchFields: []string{"comment", "tutor_name", "tutor.name"}},
		{Name: "chats", Path: "/api/students/chats", SearchFields: []string{"message", "tutor_name", "tutor.name"}},
	},
}
