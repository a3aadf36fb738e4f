package scenario

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_JSONShapes(t *testing.T) {
	tests := []struct {
		name string
		in   Action
		want string
	}{
		{"step", Step("login", 1), `{"process":"login","sleep":1}`},
		{"step with search", Action{Kind: KindStep, Process: "google_search", Sleep: 2, Search: ptr("a&b")}, `{"process":"google_search","sleep":2,"search":"a&b"}`},
		{"bounded", Bounded("scroll", 4, 2), `{"process":"scroll","limit":4,"sleep":2}`},
		{"search", Search("in:spam x"), `{"process":"search","value":"in:spam x"}`},
		{"terminator", Terminator(ProcReturnBack), `{"process":"return_back"}`},
		{
			"loop",
			Loop(3, 5, []Action{Step("delete", 1), Terminator(ProcNext)}),
			`{"process":"loop","check":"is_empty_folder","limit_loop":3,"start":5,"sub_process":[{"process":"delete","sleep":1},{"process":"next"}]}`,
		},
		{
			"loop without check",
			Action{Kind: KindLoop, LimitLoop: 1, Start: 0, Sub: []Action{Step("star", 1)}},
			`{"process":"loop","limit_loop":1,"start":0,"sub_process":[{"process":"star","sleep":1}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))

			var back Action
			require.NoError(t, json.Unmarshal([]byte(tt.want), &back))
			b2, err := json.Marshal(back)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b2))
		})
	}
}

func TestProgram_JSONDoesNotEscapeHTML(t *testing.T) {
	b, err := Program{Search("<b>&</b>")}.JSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"process":"search","value":"<b>&</b>"}]`, string(b))

	b, err = Program(nil).JSON()
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(b))
}

func TestTraitement_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "traitement.json")
	p := Program{Step("login", 1), Loop(2, 1, []Action{Step("delete", 1)})}

	require.NoError(t, WriteTraitement(path, p))
	got, err := ReadTraitement(path)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = ReadTraitement(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRows(t *testing.T) {
	in := `[
		{"id":"login_check","showOnInit":false,"fields":["2,2"]},
		{"id":"open_inbox","showOnInit":true,"label":"Inbox","textFields":["3","5","promo"],"checkboxChecked":true,"choice":"Return back"}
	]`

	rows, err := LoadRows(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"2,2"}, rows[0].TextFields)
	assert.False(t, rows[0].HasCheckbox())

	assert.True(t, rows[1].Checked())
	assert.Equal(t, "promo", rows[1].Field(2))
	assert.Equal(t, "", rows[1].Field(7))
	require.NotNil(t, rows[1].Choice)
	assert.Equal(t, ChoiceReturnBack, *rows[1].Choice)
}

func TestLoadRows_Invalid(t *testing.T) {
	_, err := LoadRows(strings.NewReader(`{"id":"x"}`))
	assert.Error(t, err)

	_, err = LoadRows(strings.NewReader(`[{"showOnInit":true}]`))
	assert.ErrorContains(t, err, "missing id")
}
