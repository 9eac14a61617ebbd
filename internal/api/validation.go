package api

import (
	"strings"

	"leelaaverse/internal/entity/db"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册自定义校验标签, 重复调用是安全的
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
		return db.ValidVisibility(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	}); err != nil {
		return err
	}
	return v.RegisterValidation("post_category", func(fl validator.FieldLevel) bool {
		return db.ValidCategory(strings.ToLower(strings.TrimSpace(fl.Field().String())))
	})
}
