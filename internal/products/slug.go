package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// slugAttempts é quantas vezes Create tenta gravar antes de devolver Conflict
const slugAttempts = 3

func baseSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "produto"
	}
	return base
}

// randomSuffix devolve um fragmento curto de UUID v4
func randomSuffix() string {
	return strings.SplitN(uuid.New().String(), "-", 2)[0]
}

// uniqueSlug gera o slug do título e acrescenta um sufixo aleatório se já estiver em uso
func uniqueSlug(ctx context.Context, repo Repository, title string, suffix func() string) (string, error) {
	base := baseSlug(title)

	exists, err := repo.SlugExists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("checking slug: %w", err)
	}
	if !exists {
		return base, nil
	}
	return base + "-" + suffix(), nil
}
