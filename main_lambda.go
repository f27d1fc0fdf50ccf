//go:build lambda

package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type allocateRequest struct {
	Rock    RockProfile   `json:"rock"`
	Sources []PowerSource `json:"sources"`
}

type allocateResponse struct {
	Allocation
	Summary string `json:"summary"`
}

func newHandler(alloc Allocator) func(context.Context, events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	return func(_ context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
		body := event.Body
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(body)
			if err != nil {
				return errResp(400, "invalid base64 body")
			}
			body = string(decoded)
		}

		var req allocateRequest
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(400, "invalid JSON: "+err.Error())
		}

		a, err := alloc.Allocate(req.Rock, req.Sources)
		if err != nil {
			var profileErr *InvalidProfileError
			var sourceErr *InvalidSourceError
			if errors.Is(err, ErrInsufficientSources) || errors.As(err, &profileErr) || errors.As(err, &sourceErr) {
				return errResp(400, err.Error())
			}
			return errResp(500, err.Error())
		}

		respJSON, _ := json.Marshal(allocateResponse{Allocation: a, Summary: FormatAllocation(a, req.Sources)})
		return events.LambdaFunctionURLResponse{StatusCode: 200, Headers: jsonHeader, Body: string(respJSON)}, nil
	}
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func main() {
	cfg, err := LoadConfig("")
	if err != nil {
		panic(err)
	}
	lambda.Start(newHandler(cfg.Allocator()))
}
