// Package invoke runs formatter commands.
//
// A Runner takes a Request (command tokens, input text, working
// directory, timeout) and returns the formatted text. Command tokens may
// contain variables that Expand substitutes:
//
//	${file}             absolute path of the document
//	${file_name}        base name of the document
//	${file_base_name}   base name without extension
//	${file_path}        directory of the document
//	${file_extension}   extension without the dot
//	${project_path}     directory of the project document
//	${tab_size}         indentation width
//	${indent}           one level of indentation
//	${temp_file}        path of a temporary copy of the input
//	${env:NAME}, $NAME  environment variables
//
// Any variable may carry a default: ${file:untitled}.
//
// When a command mentions ${temp_file}, the input is written to a
// temporary file, the tool rewrites it in place, and the result is read
// back from the file instead of standard output.
//
// Commands whose first token starts with "@" run in-process. "@json"
// re-indents JSON.
//
// Every external process is tracked by a Supervisor, so shutting the
// supervisor down kills tools still running:
//
//	sup := invoke.NewSupervisor()
//	defer sup.Shutdown(2 * time.Second)
//
//	r := invoke.NewRunner(invoke.WithSupervisor(sup))
//	out, err := r.Run(ctx, invoke.Request{
//	    Command: []string{"gofmt"},
//	    Input:   src,
//	    Timeout: 10 * time.Second,
//	})
//
// Failures are returned as *Error, whose message is the exit status
// followed by the tool's standard error (or standard output when stderr
// is empty).
package invoke
