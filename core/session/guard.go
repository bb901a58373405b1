package session

import "context"

type Decision int

const (
	// Pending means the context has not finished reading the store yet: render nothing.
	Pending Decision = iota
	Allow
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "pending"
	}
}

// Verdict is the outcome of Guard.
type Verdict struct {
	Decision Decision
	Location string
}

// Guard gates a role's protected screens. It fails closed: a missing identity or a missing
// (or expired) token both send the visitor to the role's login page.
func Guard(ctx context.Context, c *Context) (Verdict, error) {
	if !c.Hydrated() {
		return Verdict{Decision: Pending}, nil
	}
	if c.Identity() == nil {
		return Verdict{Decision: Redirect, Location: c.LoginPath()}, nil
	}
	ok, err := c.HasToken(ctx)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		return Verdict{Decision: Redirect, Location: c.LoginPath()}, nil
	}
	return Verdict{Decision: Allow}, nil
}
