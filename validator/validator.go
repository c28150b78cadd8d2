package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// Custom validation function for 0x-prefixed 20 byte addresses
func validateEthAddress(fl validator.FieldLevel) bool {
	address, ok := fl.Field().Interface().(string)
	return ok && strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// Validator returns a singleton that can be used to validate various objects
func Validator() *validator.Validate {
	once.Do(func() {
		v = validator.New()

		if err := v.RegisterValidation("eth_address", validateEthAddress); err != nil {
			panic("failed to register validation: " + err.Error())
		}

		// Register these types to use their string representation for validation
		// purposes
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			switch f := field.Interface().(type) {
			case hexutil.Bytes:
				return f.String()
			case hexutil.Big:
				return f.String()
			}
			panic("not a hex value")
		}, hexutil.Bytes{}, hexutil.Big{})
	})
	return v
}
