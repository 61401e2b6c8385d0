package handlers

import (
	"encoding/json"
	"strconv"

	xhttp "github.com/storelab/commerce-gateway/pkg/http"
)

// successEnvelope and errorEnvelope are the two response shapes every
// endpoint uses.
type successEnvelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeRaw(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, msg string, data any) {
	writeRaw(ctx, status, successEnvelope{Message: msg, Data: data})
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeRaw(ctx, status, errorEnvelope{Message: "error", Error: msg})
}

// param returns a path parameter captured by the router.
func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func paramInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	return strconv.ParseInt(param(ctx, name), 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func queryInt(ctx *xhttp.RequestCtx, key string) int {
	n, _ := strconv.Atoi(query(ctx, key))
	return n
}

// wrap applies route-level middleware, outermost first.
func wrap(h xhttp.RequestHandler, mws ...xhttp.MiddlewareFunc) xhttp.RequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
