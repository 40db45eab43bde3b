package domain

import (
	"testing"

	"fitcore/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "pkg/domain is the public vocabulary")
}

func TestDomainStaysLeaf(t *testing.T) {
	testutil.AssertNoTransitiveDependency(t, ".", testutil.ModuleImportsExcept("fitcore", "fitcore/pkg/domain"), "pkg/domain depends on no other module package")
}
