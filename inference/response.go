package inference

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/hypermodel/errors"
)

// RespondError writes err as the JSON error envelope. An *errors.AppError
// keeps its status and code; anything else becomes a 500 INTERNAL_ERROR.
func RespondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK writes data with status 200.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}
