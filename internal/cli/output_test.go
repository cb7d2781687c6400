package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/odata"
	"github.com/roach88/odatabridge/internal/provider"
	"github.com/roach88/odatabridge/internal/querysql"
	"github.com/roach88/odatabridge/internal/schema"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_QUERY", "query failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E_QUERY", resp.Error.Code)
	assert.Equal(t, "query failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"set": "Orders", "field": "Colour"}
	err := formatter.Error("E_LINK", "invalid link", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Seeded 8 records")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Seeded 8 records")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E_QUERY", "query failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_QUERY]")
	assert.Contains(t, buf.String(), "query failed")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"set": "Orders"}
	err := formatter.Error("E_QUERY", "query failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_QUERY]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("seeded %d records from %s", 8, "northwind.yaml")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "seeded 8 records from northwind.yaml")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E_INVALID_RECORD",
		Message: "invalid Order record",
		Details: []string{"OrderStatus is required"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E_INVALID_RECORD", decoded.Code)
	assert.Equal(t, "invalid Order record", decoded.Message)
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("warning: %s", "rewritten")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "warning: rewritten")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := &odata.LinkError{Code: odata.ErrCodeLinkMissingKey, Link: "http://h/Orders", Message: "no key"}
	err := formatter.Fail("invalid link", cause)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, cause)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeLinkMissingKey, resp.Error.Code)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no entity type", &builder.ResolveError{Code: builder.ErrCodeNoEntityType}, ErrCodeNoEntityType},
		{"argument null", &provider.ArgumentError{Code: provider.ErrCodeArgumentNull, Argument: "session"}, ErrCodeArgument},
		{"not registered", fmt.Errorf("get: %w", builder.ErrNotRegistered), ErrCodeNotRegistered},
		{"untranslatable", fmt.Errorf("compile: %w", querysql.ErrUntranslatable), ErrCodeUntranslatable},
		{"missing key", &odata.LinkError{Code: odata.ErrCodeLinkMissingKey}, ErrCodeLinkMissingKey},
		{"unknown set", &odata.LinkError{Code: odata.ErrCodeUnknownEntitySet}, ErrCodeLink},
		{"invalid record", &schema.ValidationError{Entity: "Order"}, ErrCodeInvalidRecord},
		{"other", errors.New("boom"), ErrCodeQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flags")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", WrapExitError(ExitCommandError, "open", errors.New("x")))))
}

func TestIsReported(t *testing.T) {
	formatter := &OutputFormatter{Format: "text", Writer: &bytes.Buffer{}}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("plain"), false},
		{"unreported exit error", NewExitError(ExitCommandError, "bad flags"), false},
		{"formatter failure", formatter.Fail("query failed", errors.New("boom")), true},
		{"wrapped formatter failure", fmt.Errorf("run: %w", formatter.Fail("query failed", errors.New("boom"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReported(tt.err))
		})
	}
}
