package main

import (
	"net/http"
	"time"
)

const timeoutPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Still working</title></head>
<body>
<main>
    <h1>The analysis service is slow to answer</h1>
    <p>Nothing you entered was lost. Continue where you left off and try again in a moment.</p>
    <p><a href="/">Continue</a></p>
</main>
</body>
</html>
`

// timeoutMargin is left between the handler deadline and the server's write timeout so that the
// timeout page still reaches the visitor.
const timeoutMargin = 500 * time.Millisecond

// timeoutHandler answers 503 Service Unavailable with timeoutPage when h does not finish within
// writeTimeout less timeoutMargin.
func timeoutHandler(h http.Handler, writeTimeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, writeTimeout-timeoutMargin, timeoutPage)
}
