package errutil

import (
	"errors"
	"net/http"
	"strings"

	"github.com/xeptore/flaw/v8"
)

var sensitiveHeaders = []string{"Authorization", "Cookie", "Set-Cookie"}

func headersFlawPayload(h http.Header) flaw.P {
	out := make(flaw.P, len(h))
	for k, v := range h {
		if isSensitiveHeader(k) {
			out[k] = "<redacted>"
			continue
		}
		out[k] = v
	}
	return out
}

func isSensitiveHeader(k string) bool {
	for _, s := range sensitiveHeaders {
		if strings.EqualFold(s, k) {
			return true
		}
	}
	return false
}

func HTTPResponseFlawPayload(res *http.Response) flaw.P {
	out := make(flaw.P, 7)
	out["status"] = res.Status
	out["status_code"] = res.StatusCode
	out["content_length"] = res.ContentLength
	out["proto"] = res.Proto
	out["proto_major"] = res.ProtoMajor
	out["proto_minor"] = res.ProtoMinor
	out["headers"] = headersFlawPayload(res.Header)
	return out
}

func HTTPRequestFlawPayload(req *http.Request) flaw.P {
	out := make(flaw.P, 4)
	out["method"] = req.Method
	out["url"] = req.URL.Redacted()
	out["content_length"] = req.ContentLength
	out["headers"] = headersFlawPayload(req.Header)
	return out
}

func IsFlaw(err error) bool {
	if flawErr := new(flaw.Flaw); errors.As(err, &flawErr) {
		return true
	}
	return false
}
