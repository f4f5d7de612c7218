// Package collection loads YAML request collections and runs them in order.
//
// A collection is a list of named requests. Values captured from one
// response (status, headers or gjson paths into the body) can be
// referenced by later requests as {{name}}; {{$VAR}} reads the process
// environment and {{uuid()}} or {{timestamp()}} call built-in functions.
//
// Example:
//
//	variables:
//	  base: http://localhost:3000
//	requests:
//	  - name: login
//	    method: PUT
//	    url: "{{base}}/json"
//	    json: {user: ada}
//	    expect: {status: 200}
//	    capture: {user: user}
//	  - name: whoami
//	    method: GET
//	    url: "{{base}}/qs"
//	    query: {user: "{{user}}"}
package collection
