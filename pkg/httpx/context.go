package httpx

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyEmail     ctxKey = "email"
	CtxKeySessionID ctxKey = "session_id"
)
