package service_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/tempizhere/linkpulse/internal/models"
	"github.com/tempizhere/linkpulse/internal/repository"
	"github.com/tempizhere/linkpulse/internal/service"
	"go.uber.org/zap"
)

func ExampleResolver_Resolve() {
	repo := repository.NewMemoryRepository()
	repo.AddLink(models.Link{ID: "l1", Slug: "docs", TargetURL: "https://example.com/docs"})

	resolver := service.NewResolver(repo, service.NewRecorder(repo), nil, zap.NewNop())

	res, err := resolver.Resolve(context.Background(), service.Request{Slug: "docs", SourceAddr: "203.0.113.7"})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.Target)

	_, err = resolver.Resolve(context.Background(), service.Request{Slug: "nope"})
	fmt.Println(errors.Is(err, service.ErrNotFound))

	// Output:
	// https://example.com/docs
	// true
}
