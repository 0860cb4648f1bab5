package middleware

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
)

// RegisterValidators 向 gin 的校验引擎注册自定义规则：
//   - hhmm：24 小时制 "HH:MM"
//   - semester：FALL / SPRING（不区分大小写）
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin 校验引擎不是 validator/v10")
	}
	if err := v.RegisterValidation("hhmm", validateHHMM); err != nil {
		return err
	}
	return v.RegisterValidation("semester", validateSemester)
}

func validateHHMM(fl validator.FieldLevel) bool {
	_, err := timeslot.ParseClock(fl.Field().String())
	return err == nil
}

func validateSemester(fl validator.FieldLevel) bool {
	_, err := model.ParseSemester(fl.Field().String())
	return err == nil
}
