package twoface

import "net/http"

// Cause - пользовательская категория ошибки. Набор закрыт.
type Cause int

const (
	ServerError Cause = iota
	UserActionInvalid
	UserInvalidField
	UserBadAuth
	UserConflict
	NotFound
)

var causeNames = [...]string{
	ServerError:       "ServerError",
	UserActionInvalid: "UserActionInvalid",
	UserInvalidField:  "UserInvalidField",
	UserBadAuth:       "UserBadAuth",
	UserConflict:      "UserConflict",
	NotFound:          "NotFound",
}

// String возвращает имя варианта, оно же попадает в тело ответа.
func (c Cause) String() string {
	if c < 0 || int(c) >= len(causeNames) {
		return causeNames[ServerError]
	}
	return causeNames[c]
}

// StatusCode переводит причину в HTTP-статус.
func (c Cause) StatusCode() int {
	switch c {
	case UserActionInvalid, UserInvalidField:
		return http.StatusBadRequest
	case UserBadAuth:
		return http.StatusUnauthorized
	case UserConflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Causes перечисляет все варианты.
func Causes() []Cause {
	return []Cause{ServerError, UserActionInvalid, UserInvalidField, UserBadAuth, UserConflict, NotFound}
}
