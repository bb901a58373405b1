// Package catalog holds the read-only reference data the enrollment wizard offers: courses,
// locations, offices and the tutors' priced offerings.
package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/trezcool/tutorhub/core"
)

// OnlineLocation is the location sentinel of remote offerings. It is compared case-insensitively.
const OnlineLocation = "online"

// FlexString decodes JSON strings as well as numbers; backend ids come as either.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return err
		}
		*s = FlexString(num.String())
		return nil
	}
}

func (s FlexString) String() string { return string(s) }

// Amount decodes JSON numbers as well as numeric strings, in major currency units.
type Amount int64

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

type (
	Course struct {
		ID          FlexString `json:"id"`
		Name        string     `json:"name"`
		Description string     `json:"description,omitempty"`
	}

	Location struct {
		ID   FlexString `json:"id"`
		Name string     `json:"name"`
	}

	Office struct {
		ID       FlexString `json:"id"`
		Name     string     `json:"name"`
		Address  string     `json:"address,omitempty"`
		Location string     `json:"location,omitempty"`
	}

	Review struct {
		ID      FlexString `json:"id,omitempty"`
		Rating  float64    `json:"rating"`
		Comment string     `json:"comment,omitempty"`
		Student string     `json:"student_name,omitempty"`
	}

	// Offering is a tutor's priced, located instance of a course.
	Offering struct {
		TutorCourseID FlexString `json:"tutor_course_id"`
		TutorID       FlexString `json:"tutor_id,omitempty"`
		TutorName     string     `json:"tutor_name"`
		CourseID      FlexString `json:"course_id,omitempty"`
		CourseName    string     `json:"course_name"`
		Price         Amount     `json:"price"`
		Duration      FlexString `json:"duration"`
		Location      string     `json:"location"`
		IsOccupied    bool       `json:"is_occupied"`
		Reviews       []Review   `json:"reviews"`
	}
)

// IsOnline reports whether location is the online sentinel.
func IsOnline(location string) bool {
	return core.SameText(location, OnlineLocation)
}

// Rating averages the offering's reviews; 0 without reviews.
func (o Offering) Rating() float64 {
	if len(o.Reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range o.Reviews {
		sum += r.Rating
	}
	return sum / float64(len(o.Reviews))
}

// TutorCandidates returns the offerings of the named course available at location.
// Online offerings are available everywhere and an online location accepts every offering.
// Occupied offerings are kept; whether to book them is the backend's call.
func TutorCandidates(offerings []Offering, courseName, location string) []Offering {
	candidates := make([]Offering, 0)
	if courseName == "" || location == "" {
		return candidates
	}
	for _, o := range offerings {
		if !core.SameText(o.CourseName, courseName) {
			continue
		}
		if IsOnline(location) || IsOnline(o.Location) || core.SameText(o.Location, location) {
			candidates = append(candidates, o)
		}
	}
	return candidates
}

func FindCourse(courses []Course, id string) (Course, bool) {
	for _, c := range courses {
		if string(c.ID) == id {
			return c, true
		}
	}
	return Course{}, false
}

// FindLocation matches by name, case-insensitively.
func FindLocation(locations []Location, name string) (Location, bool) {
	for _, l := range locations {
		if core.SameText(l.Name, name) {
			return l, true
		}
	}
	return Location{}, false
}

func FindOffice(offices []Office, id string) (Office, bool) {
	for _, o := range offices {
		if string(o.ID) == id {
			return o, true
		}
	}
	return Office{}, false
}

func FindOffering(offerings []Offering, tutorCourseID string) (Offering, bool) {
	for _, o := range offerings {
		if string(o.TutorCourseID) == tutorCourseID {
			return o, true
		}
	}
	return Offering{}, false
}
