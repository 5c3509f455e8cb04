package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	assert.Equal(t, "creme-brulee-set", Make("Crème Brûlée  Set!"))
	assert.Equal(t, "a-b", Make("--a__b--"))
	assert.Equal(t, "", Make("!!!"))
}

func TestForProduct(t *testing.T) {
	sku := "TS-01"
	assert.Equal(t, "t-shirt-42-ts-01", ForProduct("T-Shirt", 42, &sku))
	assert.Equal(t, "t-shirt-42", ForProduct("T-Shirt", 42, nil))
}
