package extension

import (
	"strings"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
)

// Script files that receive substitutions.
const (
	FileActions          = "actions.js"
	FileReportingActions = "ReportingActions.js"
	FileBackground       = "background.js"
	FileGmailProcess     = "gmail_process.js"
)

// Substitution markers.
const (
	MarkerIDL         = "__IDL__"
	MarkerEmail       = "__email__"
	MarkerHost        = "__host__"
	MarkerPort        = "__port__"
	MarkerUser        = "__user__"
	MarkerPass        = "__pass__"
	MarkerPassword    = "__password__"
	MarkerRecovery    = "__recovry__"
	MarkerNewPassword = "__newPassword__"
	MarkerNewRecovery = "__newRecovry__"

	MarkerSearchValue = "__search_value__"
)

// Markers lists every account marker.
var Markers = []string{
	MarkerEmail, MarkerIDL, MarkerHost, MarkerPort, MarkerUser,
	MarkerPass, MarkerPassword, MarkerRecovery, MarkerNewPassword, MarkerNewRecovery,
}

// fileMarkers maps each script to the markers it receives.
var fileMarkers = map[string][]string{
	FileActions:          {MarkerIDL, MarkerEmail},
	FileReportingActions: {MarkerIDL, MarkerEmail},
	FileBackground:       {MarkerHost, MarkerPort, MarkerUser, MarkerPass, MarkerIDL, MarkerEmail},
	FileGmailProcess:     {MarkerEmail, MarkerPassword, MarkerRecovery, MarkerNewPassword, MarkerNewRecovery},
}

// IsScript reports whether name is one of the substituted scripts.
func IsScript(name string) bool {
	_, ok := fileMarkers[name]
	return ok
}

func accountValue(a models.Account, marker string) string {
	switch marker {
	case MarkerIDL:
		return a.IDL
	case MarkerEmail:
		return a.Email
	case MarkerHost:
		return a.Host
	case MarkerPort:
		return a.Port
	case MarkerUser:
		return a.User
	case MarkerPass:
		return a.ProxyPassword
	case MarkerPassword:
		return a.Password
	case MarkerRecovery:
		return a.Recovery
	case MarkerNewPassword:
		return a.NewPassword
	case MarkerNewRecovery:
		return a.NewRecovery
	}
	return marker
}

// replacer returns the exact-string replacer for the script name.
func replacer(name string, a models.Account) *strings.Replacer {
	markers := fileMarkers[name]
	pairs := make([]string, 0, 2*len(markers))
	for _, m := range markers {
		pairs = append(pairs, m, accountValue(a, m))
	}
	return strings.NewReplacer(pairs...)
}
