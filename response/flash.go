package response

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookie holds the envelope of the last redirect for the next page view.
const FlashCookie = "master_flash"

func setFlash(w http.ResponseWriter, env Envelope) error {
	env.Data = nil
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ReadFlash returns the envelope stored by the previous redirect, if any.
func ReadFlash(r *http.Request) (Envelope, bool) {
	c, err := r.Cookie(FlashCookie)
	if err != nil || c.Value == "" {
		return Envelope{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, false
	}
	return env, true
}

func clearFlash(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
