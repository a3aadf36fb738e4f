package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/automailpro/internal/filex"
)

// Kind tags an Action.
type Kind int

const (
	KindStep Kind = iota
	KindBounded
	KindSearch
	KindLoop
	KindTerminator
)

// Well-known process names.
const (
	ProcLogin               = "login"
	ProcLoop                = "loop"
	ProcSearch              = "search"
	ProcNext                = "next"
	ProcReturnBack          = "return_back"
	ProcOpenInbox           = "open_inbox"
	ProcOpenSpam            = "open_spam"
	ProcOpenMessage         = "open_message"
	ProcOpenMessageOneByOne = "OPEN_MESSAGE_ONE_BY_ONE"
	ProcSelectAll           = "select_all"
	ProcCheckLoginYoutube   = "CheckLoginYoutube"

	CheckEmptyFolder = "is_empty_folder"
)

// Action is one compiled instruction. Which fields are meaningful depends
// on Kind:
//
//	KindStep        Process, Sleep, Search (optional)
//	KindBounded     Process, Limit, Sleep
//	KindSearch      Value
//	KindLoop        Check (optional), LimitLoop, Start, Sub
//	KindTerminator  Process (next or return_back)
type Action struct {
	Kind      Kind
	Process   string
	Sleep     int
	Limit     int
	Search    *string
	Value     string
	Check     string
	LimitLoop int
	Start     int
	Sub       []Action
}

func Step(process string, sleep int) Action {
	return Action{Kind: KindStep, Process: process, Sleep: sleep}
}

func Bounded(process string, limit, sleep int) Action {
	return Action{Kind: KindBounded, Process: process, Limit: limit, Sleep: sleep}
}

func Search(value string) Action {
	return Action{Kind: KindSearch, Process: ProcSearch, Value: value}
}

func Terminator(process string) Action {
	return Action{Kind: KindTerminator, Process: process}
}

func Loop(limitLoop, start int, sub []Action) Action {
	return Action{Kind: KindLoop, Process: ProcLoop, Check: CheckEmptyFolder, LimitLoop: limitLoop, Start: start, Sub: sub}
}

func (a Action) IsTerminator() bool {
	return a.Kind == KindTerminator
}

type stepJSON struct {
	Process string  `json:"process"`
	Sleep   int     `json:"sleep"`
	Search  *string `json:"search,omitempty"`
}

type boundedJSON struct {
	Process string `json:"process"`
	Limit   int    `json:"limit"`
	Sleep   int    `json:"sleep"`
}

type searchJSON struct {
	Process string `json:"process"`
	Value   string `json:"value"`
}

type loopJSON struct {
	Process   string   `json:"process"`
	Check     string   `json:"check,omitempty"`
	LimitLoop int      `json:"limit_loop"`
	Start     int      `json:"start"`
	Sub       []Action `json:"sub_process"`
}

type terminatorJSON struct {
	Process string `json:"process"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	var v any
	switch a.Kind {
	case KindStep:
		v = stepJSON{a.Process, a.Sleep, a.Search}
	case KindBounded:
		v = boundedJSON{a.Process, a.Limit, a.Sleep}
	case KindSearch:
		v = searchJSON{ProcSearch, a.Value}
	case KindLoop:
		sub := a.Sub
		if sub == nil {
			sub = []Action{}
		}
		v = loopJSON{ProcLoop, a.Check, a.LimitLoop, a.Start, sub}
	case KindTerminator:
		v = terminatorJSON{a.Process}
	default:
		return nil, fmt.Errorf("unknown action kind %d", a.Kind)
	}
	return marshal(v)
}

func (a *Action) UnmarshalJSON(b []byte) error {
	doc := gjson.ParseBytes(b)
	if !doc.IsObject() {
		return fmt.Errorf("action is not an object: %s", b)
	}
	process := doc.Get("process").String()

	switch {
	case process == ProcLoop || doc.Get("sub_process").Exists():
		var l loopJSON
		if err := json.Unmarshal(b, &l); err != nil {
			return err
		}
		*a = Action{Kind: KindLoop, Process: ProcLoop, Check: l.Check, LimitLoop: l.LimitLoop, Start: l.Start, Sub: l.Sub}
	case process == ProcSearch && doc.Get("value").Exists():
		*a = Search(doc.Get("value").String())
	case (process == ProcNext || process == ProcReturnBack) && !doc.Get("sleep").Exists():
		*a = Terminator(process)
	case doc.Get("limit").Exists():
		var s boundedJSON
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Bounded(s.Process, s.Limit, s.Sleep)
	default:
		var s stepJSON
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Action{Kind: KindStep, Process: s.Process, Sleep: s.Sleep, Search: s.Search}
	}
	return nil
}

// Program is a compiled scenario.
type Program []Action

// Walk calls fn for every action, descending into loops.
func (p Program) Walk(fn func(Action)) {
	for _, a := range p {
		fn(a)
		if a.Kind == KindLoop {
			Program(a.Sub).Walk(fn)
		}
	}
}

// JSON renders the program compactly without HTML escaping.
func (p Program) JSON() ([]byte, error) {
	if p == nil {
		p = Program{}
	}
	return marshal([]Action(p))
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteTraitement stores the program at path.
func WriteTraitement(path string, p Program) error {
	b, err := p.JSON()
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(path, b, 0o644)
}

func ReadTraitement(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Program
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return p, nil
}
