//go:build lambda

// Command lambda serves POST /api/build style requests from an AWS Lambda
// function URL. Tables arrive inline in the request body.
package main

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/goccy/go-json"

	"ghostbuild/internal/build"
	"ghostbuild/internal/config"
	"ghostbuild/internal/loader"
	"ghostbuild/internal/logging"
	"ghostbuild/internal/pipeline"
)

type request struct {
	Champion string              `json:"champion"`
	Mode     string              `json:"mode"`
	Tier     string              `json:"tier"`
	Window   string              `json:"window"`
	Explain  bool                `json:"explain"`
	Winning  []build.WinningItem `json:"winning"`
	Sets     []build.BuiltSet    `json:"sets"`
}

type response struct {
	*pipeline.Record
	Reports loader.Reports `json:"reports"`
}

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

var (
	cfg *config.Config
	ld  *loader.Loader
)

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{
		StatusCode: code,
		Headers:    jsonHeader,
		Body:       string(body),
	}, nil
}

func handler(_ context.Context, ev events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	if ev.RequestContext.HTTP.Method == http.MethodOptions {
		return events.LambdaFunctionURLResponse{StatusCode: http.StatusNoContent}, nil
	}
	if ev.RequestContext.HTTP.Method != http.MethodPost {
		return errResp(http.StatusMethodNotAllowed, "POST only")
	}

	body := ev.Body
	if ev.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req request
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return errResp(http.StatusBadRequest, "invalid JSON body")
	}

	key := pipeline.Key{Champion: req.Champion, Mode: cfg.Defaults.Mode, Tier: cfg.Defaults.Tier, Window: cfg.Defaults.Window}
	if req.Mode != "" {
		key.Mode = req.Mode
	}
	if req.Tier != "" {
		key.Tier = req.Tier
	}
	if req.Window != "" {
		key.Window = req.Window
	}

	winning, sets, reports := ld.Clean(req.Winning, req.Sets)
	engine := cfg.Engine
	engine.Explain = engine.Explain || req.Explain
	l := logging.Component("pipeline")

	rec, err := pipeline.Recommend(key, pipeline.Tables{Winning: winning, Sets: sets, Source: "lambda"},
		pipeline.Options{Engine: engine, Logger: &l})
	if errors.Is(err, pipeline.ErrEmptyWinning) || errors.Is(err, pipeline.ErrEmptySets) {
		return errResp(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return errResp(http.StatusInternalServerError, err.Error())
	}

	out, err := json.Marshal(response{Record: rec, Reports: reports})
	if err != nil {
		return errResp(http.StatusInternalServerError, err.Error())
	}
	return events.LambdaFunctionURLResponse{
		StatusCode: http.StatusOK,
		Headers:    jsonHeader,
		Body:       string(out),
	}, nil
}

func main() {
	var err error
	cfg, err = config.Load("")
	if err != nil {
		logging.Error().Err(err).Msg("invalid config")
		return
	}
	logging.Init(cfg.Log)
	ld = loader.New(loader.WithLogger(logging.Component("loader")))
	lambda.Start(handler)
}
