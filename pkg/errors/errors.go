// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

// Package errors defines the machine-readable error taxonomy shared by all
// Rune subsystems. Every error carries a dotted Code; the last segment is
// the failure reason and drives the predicate helpers and the client-facing
// tag surfaced in tool responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigSaveWriteFailure     Code = "config.save.write.failure"

	CodePipelineDormant       Code = "pipeline.state.dormant"
	CodePipelineInputEmpty    Code = "pipeline.input.empty"
	CodePipelineBadArgument   Code = "pipeline.input.bad_argument"
	CodePipelineCallTimeout   Code = "pipeline.call.timeout"
	CodePipelineInitFailure   Code = "pipeline.init.failure"
	CodePipelineReloadFailure Code = "pipeline.reload.failure"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderResponseInvalid Code = "provider.response.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderUnavailable     Code = "provider.client.unavailable"

	CodeEmbeddingRequestInvalid    Code = "embedding.request.invalid"
	CodeEmbeddingDimensionMismatch Code = "embedding.vector.dimension_mismatch"
	CodeEmbeddingUpstreamFailure   Code = "embedding.upstream.failure"

	CodeStoreUnavailable   Code = "store.envector.unavailable"
	CodeStoreInsertFailure Code = "store.envector.insert.failure"
	CodeStoreSearchFailure Code = "store.envector.search.failure"
	CodeStoreIndexFailure  Code = "store.envector.index.failure"

	CodeVaultUnavailable  Code = "vault.rpc.unavailable"
	CodeVaultPolicyDenied Code = "vault.policy.denied"
	CodeVaultKeyFailure   Code = "vault.key.failure"

	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretInvalidInput   Code = "secret.uri.invalid_input"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr { return Field("provider", value) }
func FieldIndex(value string) Attr    { return Field("index", value) }
func FieldRecordID(value string) Attr { return Field("record_id", value) }
func FieldTool(value string) Attr     { return Field("tool", value) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsDormant(err error) bool {
	return HasCode(err, CodePipelineDormant)
}

func IsPolicyDenied(err error) bool {
	return HasCode(err, CodeVaultPolicyDenied)
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" ||
		r == "invalid_format" || r == "bad_argument" || r == "empty"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

// ClientTag maps an error to the string tag surfaced in tool responses.
// Unclassified errors map to "internal"; callers attach a correlation id
// and log the full chain to stderr.
func ClientTag(err error) string {
	switch code := CodeOf(err); {
	case code == CodePipelineDormant:
		return "dormant"
	case code == CodePipelineInputEmpty:
		return "empty"
	case code == CodePipelineBadArgument:
		return "bad_argument"
	case code == CodePipelineCallTimeout || IsTimeout(err):
		return "timeout"
	case code == CodeVaultPolicyDenied:
		return "policy_denied"
	case strings.HasPrefix(string(code), "vault."):
		return "vault_unavailable"
	case strings.HasPrefix(string(code), "store."):
		return "store_unavailable"
	case code == CodeProviderUnavailable:
		return "llm_unavailable"
	default:
		return "internal"
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
