package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"homedash-backend/infrastructure/config"
	"homedash-backend/infrastructure/di"
	"homedash-backend/interfaces/http/rest"
)

// Global variables for Lambda lifecycle management
var (
	// chiLambda wraps the Chi router for AWS Lambda integration
	chiLambda *chiadapter.ChiLambdaV2

	// container holds the dependency injection container
	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// No background ticker in Lambda: the process can be frozen between
	// invocations, so every mutation path flushes before responding.
	router := rest.NewRouter(
		container.LayoutService,
		container.Logger,
		cfg.IsDevelopment(),
		cfg.EnableCORS,
	)

	handler := router.Setup()

	chiRouter, ok := handler.(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	// API Gateway's JWT authorizer has validated the token before the
	// function runs; translate its context into the headers the auth
	// middleware trusts.
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}

	authHeader := req.Headers["authorization"]
	if authHeader == "" {
		authHeader = req.Headers["Authorization"]
	}

	if authorizer := req.RequestContext.Authorizer; authorizer != nil && authorizer.JWT != nil {
		if sub, ok := authorizer.JWT.Claims["sub"]; ok && sub != "" {
			req.Headers["X-API-Gateway-Authorized"] = "true"
			req.Headers["X-User-ID"] = sub
			if email, ok := authorizer.JWT.Claims["email"]; ok {
				req.Headers["X-User-Email"] = email
			}

			// In-process counters reset whenever the execution environment
			// is recycled, so Lambda rate limits through DynamoDB instead.
			allowed, rlErr := container.RateLimiter.Allow(ctx, sub)
			if rlErr != nil {
				container.Logger.Warn("Rate limit check degraded",
					zap.String("userId", sub),
					zap.Error(rlErr),
				)
			}
			if !allowed {
				return events.APIGatewayV2HTTPResponse{
					StatusCode: 429,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       `{"success":false,"error":{"code":"RATE_LIMITED","message":"Rate limit exceeded"}}`,
				}, nil
			}
		}
	} else if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
		// Direct invocation without an authorizer (local testing through
		// sam local); the middleware validates the JWT itself.
		container.Logger.Debug("No authorizer context, falling back to in-process JWT validation")
	}

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}

	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}

	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	// Mutations mark layouts dirty; with no ticker running, flush before
	// the execution environment is frozen.
	if method := req.RequestContext.HTTP.Method; method != "GET" && method != "OPTIONS" {
		if userID := req.Headers["X-User-ID"]; userID != "" {
			flushCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if flushErr := container.LayoutService.Flush(flushCtx, userID); flushErr != nil {
				container.Logger.Warn("Post-invocation flush failed",
					zap.String("userId", userID),
					zap.Error(flushErr),
				)
			}
			cancel()
		}
	}

	return resp, err
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(Handler)
}
