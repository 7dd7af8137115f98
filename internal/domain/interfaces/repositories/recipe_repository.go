// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/kilnworks/kiln/internal/domain/entities"
)

// RecipeRepository defines the interface for accessing image recipes
type RecipeRepository interface {
	// GetRecipe retrieves an image recipe by name
	GetRecipe(ctx context.Context, name string) (*entities.ImageRecipe, error)

	// ListRecipes returns all available image recipes
	ListRecipes(ctx context.Context) ([]*entities.ImageRecipe, error)
}
