package handlers

import (
	"net/http"

	"github.com/geocoder89/expensehub/internal/cache"
	"github.com/geocoder89/expensehub/internal/domain/category"
	"github.com/gin-gonic/gin"
)

const categoriesCacheKey = "categories:list"

// CategoriesHandler serves the embedded category taxonomy. The payload only
// changes across releases, so responses sit in the in-process cache.
type CategoriesHandler struct {
	taxonomy *category.Taxonomy
	cache    *cache.Cache
}

func NewCategoriesHandler(taxonomy *category.Taxonomy, c *cache.Cache) *CategoriesHandler {
	return &CategoriesHandler{taxonomy: taxonomy, cache: c}
}

func (h *CategoriesHandler) ListCategories(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(categoriesCacheKey); ok {
			ctx.JSON(http.StatusOK, v)
			return
		}
	}

	payload := gin.H{"categories": h.taxonomy.List()}

	if h.cache != nil {
		h.cache.Set(categoriesCacheKey, payload)
	}

	ctx.JSON(http.StatusOK, payload)
}
