// Package policy holds the authorization gate: a pure mapping from
// (principal, action, optional course) to Allow or Deny. No I/O happens here.
package policy

import "github.com/oksasatya/course-enrollment/internal/domain/entity"

// Action is a protected operation.
type Action int

const (
	ActionListCourses Action = iota + 1
	ActionViewMyCourses
	ActionCreateCourse
	ActionManageCourse
	ActionViewRoster
	ActionEnroll
	ActionUnenroll
)

func (a Action) String() string {
	switch a {
	case ActionListCourses:
		return "list_courses"
	case ActionViewMyCourses:
		return "view_my_courses"
	case ActionCreateCourse:
		return "create_course"
	case ActionManageCourse:
		return "manage_course"
	case ActionViewRoster:
		return "view_roster"
	case ActionEnroll:
		return "enroll"
	case ActionUnenroll:
		return "unenroll"
	default:
		return "unknown"
	}
}

// RequiresCourse reports whether the decision depends on the fetched course.
// Callers must fetch first and surface a missing course as not found before asking the gate.
func (a Action) RequiresCourse() bool {
	return a == ActionManageCourse || a == ActionViewRoster
}

// Decision is the two-valued gate result. The zero value denies.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) Allowed() bool { return d == Allow }

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Principal is the resolved caller. An empty UserID means anonymous.
type Principal struct {
	UserID string
	Role   entity.Role
}

// Anonymous returns the principal of an unauthenticated caller.
func Anonymous() Principal { return Principal{} }

func (p Principal) IsAnonymous() bool { return p.UserID == "" }

// Is reports whether p holds role. Anonymous callers hold no role.
func (p Principal) Is(role entity.Role) bool {
	return !p.IsAnonymous() && p.Role == role
}

// Authorize evaluates action for p. course is consulted only by resource-dependent
// actions; passing nil for those yields Deny.
func Authorize(action Action, p Principal, course *entity.Course) Decision {
	switch action {
	case ActionListCourses:
		return Allow
	case ActionViewMyCourses, ActionEnroll, ActionUnenroll:
		return when(p.Is(entity.RoleStudent))
	case ActionCreateCourse:
		return when(p.Is(entity.RoleTeacher) || p.Is(entity.RoleAdmin))
	case ActionManageCourse, ActionViewRoster:
		if course == nil {
			return Deny
		}
		return when(p.Is(entity.RoleAdmin) || (p.Is(entity.RoleTeacher) && p.UserID == course.TeacherID))
	default:
		return Deny
	}
}

func CanListCourses(p Principal) Decision   { return Authorize(ActionListCourses, p, nil) }
func CanViewMyCourses(p Principal) Decision { return Authorize(ActionViewMyCourses, p, nil) }
func CanCreateCourse(p Principal) Decision  { return Authorize(ActionCreateCourse, p, nil) }
func CanEnroll(p Principal) Decision        { return Authorize(ActionEnroll, p, nil) }
func CanUnenroll(p Principal) Decision      { return Authorize(ActionUnenroll, p, nil) }

func CanManageCourse(p Principal, c *entity.Course) Decision {
	return Authorize(ActionManageCourse, p, c)
}

func CanViewRoster(p Principal, c *entity.Course) Decision {
	return Authorize(ActionViewRoster, p, c)
}

func when(ok bool) Decision {
	if ok {
		return Allow
	}
	return Deny
}
