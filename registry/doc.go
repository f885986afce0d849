/*
Package registry holds the entity schema shared by the store and its
persisters.

Each entity is described by its name, its primary-key field, the fields
that must be present on save and, for backends that derive keys from field
values, an index map of key templates:

	reg := registry.New()
	err := reg.Register(registry.EntityDescriptor{
	    Name:       "Dummy",
	    PrimaryKey: "id",
	    IndexMap: map[string]string{
	        "PK": "DUMMY#{id}",
	        "SK": "DUMMY",
	    },
	})

A Registry is an explicit value passed to the components that need it;
there is no package-level default.
*/
package registry
