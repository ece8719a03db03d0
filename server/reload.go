// reload.go - Admin endpoint that re-reads the rules file
package server

import (
	"crypto/subtle"
	"net/http"

	"stat-attack/config"
)

// ReloadRules re-reads the rules file and swaps it in for battles and
// purchases that start afterwards. Battles already on the court keep the
// rules they started with.
func (s *Server) ReloadRules(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Admin-Token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		respondError(w, http.StatusUnauthorized, "invalid token", nil)
		return
	}

	logf("rules reload requested from %s", r.RemoteAddr)
	rules, err := config.LoadRules(s.rulesFile)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error(), err)
		return
	}
	s.sessions.SetRules(rules.Game, rules.Economy)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "reloaded",
		"rules_file": s.rulesFile,
		"rules":      rules,
	})
}
