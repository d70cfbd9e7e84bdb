package constant

import "net/http"

type ErrorType int

const (
	Successful ErrorType = iota
	ErrInternal
	ErrNotFound
	ErrInvalidRequest
	ErrValidation
	ErrRemoteFetch
	ErrPersistence
	ErrPartialFulfillment
	ErrNoOrderableMerchant
	ErrHandOffFailed
)

var ErrorTypeMessage = map[ErrorType]string{
	Successful:             "success",
	ErrInternal:            "error internal",
	ErrNotFound:            "data not found",
	ErrInvalidRequest:      "invalid request",
	ErrValidation:          "missing required fields",
	ErrRemoteFetch:         "catalog unreachable",
	ErrPersistence:         "local store unavailable",
	ErrPartialFulfillment:  "some merchants are currently closed",
	ErrNoOrderableMerchant: "no orderable merchant in cart",
	ErrHandOffFailed:       "order hand-off failed",
}

var ErrorTypeHTTPCode = map[ErrorType]int{
	Successful:             http.StatusOK,
	ErrInternal:            http.StatusInternalServerError,
	ErrNotFound:            http.StatusBadRequest,
	ErrInvalidRequest:      http.StatusBadRequest,
	ErrValidation:          http.StatusBadRequest,
	ErrRemoteFetch:         http.StatusServiceUnavailable,
	ErrPersistence:         http.StatusInternalServerError,
	ErrPartialFulfillment:  http.StatusConflict,
	ErrNoOrderableMerchant: http.StatusBadRequest,
	ErrHandOffFailed:       http.StatusBadGateway,
}

var ErrorTypeCode = map[ErrorType]string{
	Successful:             "0000",
	ErrInternal:            "0001",
	ErrNotFound:            "0002",
	ErrInvalidRequest:      "0003",
	ErrValidation:          "0004",
	ErrRemoteFetch:         "0005",
	ErrPersistence:         "0006",
	ErrPartialFulfillment:  "0007",
	ErrNoOrderableMerchant: "0008",
	ErrHandOffFailed:       "0009",
}
