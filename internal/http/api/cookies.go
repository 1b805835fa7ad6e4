package api

import "net/http"

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

// Cookies are host-only (no Domain attribute unless configured), HttpOnly
// and, outside local development, Secure.
func (s *Server) setTokenCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    accessToken,
		Path:     "/",
		Domain:   s.cookieDomain,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.accessTTL.Seconds()),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    refreshToken,
		Path:     "/",
		Domain:   s.cookieDomain,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.refreshTTL.Seconds()),
	})
}

func (s *Server) clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessCookie, MaxAge: -1, Path: "/", Domain: s.cookieDomain})
	http.SetCookie(w, &http.Cookie{Name: refreshCookie, MaxAge: -1, Path: "/", Domain: s.cookieDomain})
}
