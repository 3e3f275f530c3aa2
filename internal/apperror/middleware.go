package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// HTTPError é implementado por qualquer erro que sabe se representar na borda HTTP
type HTTPError interface {
	error
	HTTPStatus() int
	ErrorCode() string
	PublicMessage() string
}

type errorBody struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
	Detail  string       `json:"detail,omitempty"`
}

// UseJSONFieldNames faz o validator reportar o nome da tag json em vez do campo Go
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// Handler converte o último erro registrado via c.Error na resposta JSON padronizada
func Handler(logger *zap.Logger, exposeDetail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, body := Render(err, exposeDetail)
		if status >= http.StatusInternalServerError {
			logger.Error("Erro inesperado",
				zap.String("path", c.FullPath()),
				zap.String("method", c.Request.Method),
				zap.Error(err),
			)
		}
		c.JSON(status, body)
	}
}

// Render converte err no status HTTP e no corpo da resposta
func Render(err error, exposeDetail bool) (int, any) {
	if fields, ok := bindingFields(err); ok {
		appErr := Validation(fields)
		return appErr.HTTPStatus(), errorBody{Code: appErr.Code, Message: appErr.Message, Errors: appErr.Fields}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		status := httpErr.HTTPStatus()
		body := errorBody{Code: httpErr.ErrorCode(), Message: httpErr.PublicMessage()}
		var appErr *Error
		if errors.As(err, &appErr) {
			body.Errors = appErr.Fields
		}
		if status >= http.StatusInternalServerError && exposeDetail {
			body.Detail = err.Error()
		}
		return status, body
	}

	body := errorBody{
		Code:    "INTERNAL_ERROR",
		Message: "Ocorreu um erro interno. Tente novamente mais tarde.",
	}
	if exposeDetail {
		body.Detail = err.Error()
	}
	return http.StatusInternalServerError, body
}

func bindingFields(err error) ([]FieldError, bool) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
		}
		return fields, true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syntaxErr):
		return []FieldError{{Field: "body", Message: "JSON malformado."}}, true
	case errors.As(err, &typeErr):
		return []FieldError{{Field: typeErr.Field, Message: fmt.Sprintf("deve ser do tipo %s", typeErr.Type)}}, true
	}
	return nil, false
}

// fieldPath remove o nome da struct raiz do namespace do validator
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "campo obrigatório"
	case "email":
		return "e-mail inválido"
	case "uuid", "uuid4":
		return "identificador inválido"
	case "len":
		return fmt.Sprintf("deve ter %s caracteres", fe.Param())
	case "numeric":
		return "deve conter apenas dígitos"
	case "oneof":
		return fmt.Sprintf("deve ser um de: %s", fe.Param())
	case "min":
		return fmt.Sprintf("valor mínimo: %s", fe.Param())
	case "max":
		return fmt.Sprintf("valor máximo: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("deve ser maior que %s", fe.Param())
	default:
		return fmt.Sprintf("falhou na regra %s", fe.Tag())
	}
}
