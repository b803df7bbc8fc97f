package poller

import "net/http"

type errStatusNotOK int

func (e errStatusNotOK) Error() string {
	return "non-2xx HTTP status code: " + http.StatusText(int(e))
}

type errMalformedResponse string

func (e errMalformedResponse) Error() string {
	return "malformed source response, missing field: " + string(e)
}
