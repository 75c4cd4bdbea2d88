package main

const (
	// sessionCookieName is the cookie holding the scs session token.
	sessionCookieName = "aivis_session"
	// wizardSessionKey stores the id of the visitor's [wizard.Session] in the cookie session.
	wizardSessionKey = "wizardSessionID"
)
