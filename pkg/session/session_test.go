package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocatorJSElement(t *testing.T) {
	assert.Equal(t, `document.getElementById("sole")`, ID("sole").JSElement())
	assert.Equal(t, `document.querySelector("input[name=\"x\"]")`, CSS(`input[name="x"]`).JSElement())
	assert.Equal(t,
		`document.evaluate("//a[contains(., 'Continue')]", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
		XPath("//a[contains(., 'Continue')]").JSElement())
}

func TestLocatorString(t *testing.T) {
	assert.Equal(t, "id=sole", ID("sole").String())
	assert.Equal(t, "css=.errorMessage", CSS(".errorMessage").String())
}

func TestFactoryFunc(t *testing.T) {
	called := false
	f := FactoryFunc(func(context.Context) (Session, error) {
		called = true
		return nil, nil
	})

	_, err := f.New(context.Background())
	assert.NoError(t, err)
	assert.True(t, called)
}
