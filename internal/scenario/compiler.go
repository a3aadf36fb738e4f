package scenario

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/validation"
)

// ChoiceReturnBack is the choice widget value selecting return_back.
const ChoiceReturnBack = "Return back"

// Processes that are never emitted.
var excluded = []string{"google_maps_actions", "save_location", "search_activities"}

// Loop actions allowed after open_inbox / open_spam.
var (
	inboxActions = []string{"report_spam", "delete", "archive"}
	spamActions  = []string{"not_spam", "delete", "report_spam"}
	// A loop ending in one of these keeps open_message as is.
	destructive = []string{"delete", "archive", "not_spam", "report_spam"}
)

// Compiler turns editor rows into a Program. It is not safe for concurrent
// use because it owns its random source.
type Compiler struct {
	rng *rand.Rand
}

// NewCompiler uses rng for every random choice; nil seeds from the clock.
func NewCompiler(rng *rand.Rand) *Compiler {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Compiler{rng: rng}
}

func (c *Compiler) uniform() int {
	return 1 + c.rng.IntN(3)
}

func (c *Compiler) parse(s string) int {
	return validation.ParseRandomRange(s, c.rng)
}

// Compile runs the row pass and the three post-passes and prefixes the
// login step.
func (c *Compiler) Compile(rows []Row) Program {
	out := c.rows(rows)
	out = splitPass(out)
	out = c.adjustPass(out)
	out = checkStripPass(out)
	return append(Program{Step(ProcLogin, 1)}, out...)
}

func (c *Compiler) rows(rows []Row) []Action {
	var out []Action

	for i := 0; i < len(rows); i++ {
		r := rows[i]

		switch {
		case r.isGoogle() || (r.isYoutube() && r.ShowOnInit):
			out = append(out, c.searchStep(r))

		case r.isYoutube():
			out = append(out,
				Step(ProcCheckLoginYoutube, c.uniform()),
				Bounded(r.ID, c.parse(r.Field(0)), c.parse(r.Field(1))),
			)

		case r.ShowOnInit && r.HasCheckbox():
			out = append(out, Step(r.ID, c.uniform()))
			if r.Checked() {
				text := r.Field(2)
				if r.ID == ProcOpenSpam {
					text = "in:spam " + text
				}
				out = append(out, Search(text))
			}

			var sub []Action
			for i+1 < len(rows) && !rows[i+1].ShowOnInit && !rows[i+1].isGoogle() && !rows[i+1].isYoutube() {
				i++
				sub = append(sub, c.plain(rows[i]))
			}
			if len(sub) > 0 {
				sub = append(sub, terminatorFor(r))
			}
			out = append(out, Loop(c.parse(r.Field(0)), c.parse(r.Field(1)), sub))

		case r.ShowOnInit:
			out = append(out, Step(r.ID, c.parse(r.Field(0))))

		default:
			out = append(out, c.plain(r))
		}
	}
	return out
}

func (c *Compiler) plain(r Row) Action {
	switch len(r.TextFields) {
	case 0:
		return Step(r.ID, c.uniform())
	case 1:
		return Step(r.ID, c.parse(r.Field(0)))
	default:
		return Bounded(r.ID, c.parse(r.Field(0)), c.parse(r.Field(1)))
	}
}

// searchStep builds a google/youtube step; a checked checkbox attaches the
// search text from the second field, or the first when there is only one.
func (c *Compiler) searchStep(r Row) Action {
	a := Step(r.ID, c.parse(r.Field(0)))
	if r.Checked() {
		s := r.Field(0)
		if len(r.TextFields) > 1 {
			s = r.Field(1)
		}
		a.Search = &s
	}
	return a
}

func terminatorFor(r Row) Action {
	if r.Choice != nil && *r.Choice == ChoiceReturnBack {
		return Terminator(ProcReturnBack)
	}
	return Terminator(ProcNext)
}

func hasProcess(sub []Action, names ...string) bool {
	return slices.ContainsFunc(sub, func(a Action) bool {
		return slices.Contains(names, a.Process)
	})
}

func withoutTerminators(sub []Action) []Action {
	return slices.DeleteFunc(slices.Clone(sub), Action.IsTerminator)
}

// splitPass drops empty loops and applies the folder rules to the loops
// following open_inbox and open_spam.
func splitPass(in []Action) []Action {
	out := make([]Action, 0, len(in))
	folder := ""

	for _, a := range in {
		if a.Kind == KindStep && (a.Process == ProcOpenInbox || a.Process == ProcOpenSpam) {
			folder = a.Process
		}
		if a.Kind != KindLoop {
			out = append(out, a)
			continue
		}
		if len(a.Sub) == 0 {
			continue
		}

		switch folder {
		case ProcOpenInbox:
			if hasProcess(a.Sub, append([]string{ProcSelectAll}, inboxActions...)...) {
				a.Sub = withoutTerminators(a.Sub)
			}
		case ProcOpenSpam:
			allowed := append([]string{ProcSelectAll}, spamActions...)
			a.Sub = slices.DeleteFunc(slices.Clone(a.Sub), func(s Action) bool {
				return !slices.Contains(allowed, s.Process)
			})
		}

		if len(a.Sub) > 0 {
			out = append(out, a)
		}
	}
	return out
}

// adjustPass removes excluded processes and reconciles loops with
// open_message: a loop ending in next gets an outer open_message step, a
// loop without destructive actions opens messages one by one.
func (c *Compiler) adjustPass(in []Action) []Action {
	out := make([]Action, 0, len(in))

	for _, a := range in {
		if slices.Contains(excluded, a.Process) {
			continue
		}
		if a.Kind != KindLoop {
			out = append(out, a)
			continue
		}

		a.Sub = slices.DeleteFunc(slices.Clone(a.Sub), func(s Action) bool {
			return slices.Contains(excluded, s.Process)
		})
		if len(a.Sub) == 0 {
			continue
		}

		last := a.Sub[len(a.Sub)-1]
		switch {
		case last.Process == ProcNext:
			out = append(out, Step(ProcOpenMessage, c.uniform()))
		case !hasProcess(a.Sub, destructive...):
			for i := range a.Sub {
				if a.Sub[i].Process == ProcOpenMessage {
					a.Sub[i].Process = ProcOpenMessageOneByOne
				}
			}
		}
		out = append(out, a)
	}
	return out
}

// checkStripPass clears the check of every loop containing next once an
// outer open_message step has been emitted.
func checkStripPass(in []Action) []Action {
	seen := false
	for i, a := range in {
		switch {
		case a.Kind != KindLoop && a.Process == ProcOpenMessage:
			seen = true
		case a.Kind == KindLoop && seen && hasProcess(a.Sub, ProcNext):
			in[i].Check = ""
		}
	}
	return in
}
