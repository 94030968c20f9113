package testutil

import (
	"errors"
	"net/http"
	"testing"
)

func TestAssertStatusCode(t *testing.T) {
	mock := &testing.T{}
	AssertStatusCode(mock, http.StatusOK, http.StatusOK)
	if mock.Failed() {
		t.Error("matching status codes should not fail")
	}

	mock = &testing.T{}
	AssertStatusCode(mock, http.StatusNotFound, http.StatusOK)
	if !mock.Failed() {
		t.Error("mismatched status codes should fail")
	}
}

func TestAssertNoError(t *testing.T) {
	mock := &testing.T{}
	AssertNoError(mock, nil)
	if mock.Failed() {
		t.Error("nil error should not fail")
	}
}

func TestAssertError(t *testing.T) {
	mock := &testing.T{}
	AssertError(mock, errors.New("boom"))
	if mock.Failed() {
		t.Error("non-nil error should not fail")
	}
}
