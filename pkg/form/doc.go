// Package form validates form controls against a named schema.
//
// A Schema maps field names to validators. Attached to a <form> element
// it checks the changed control on every input event, publishing the
// first failure through the control's custom validity and the element
// named by its aria-describedby attribute. On submit every control is
// checked; an invalid form has its default prevented and no submit
// callback runs.
//
//	signup := form.NewSchema("signup", form.Fields{
//	    "email":    form.Chain(form.Required(""), form.Email("")),
//	    "password": form.MinLength(4, ""),
//	}, form.OnSubmit(func(values map[string]string) {
//	    ...
//	}))
//
// Validators can also be written as rule strings, the way config files
// declare them:
//
//	form.Rules("required,minlength=4")
package form
