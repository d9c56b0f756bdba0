// Package template renders the server-rule files placed next to validation
// tokens.
//
// Validation tokens are extension-less files. Left alone, the hosting web
// server may rewrite the request (Apache with mod_rewrite on POSIX targets)
// or refuse to serve an unknown MIME type (IIS on Windows targets). A rule
// file dropped into the validation directory switches that off:
//
//	rules/htaccess.tmpl    -> .htaccess   (RewriteEngine off)
//	rules/web.config.tmpl  -> web.config  (staticContent mimeMap)
//
// Rule templates are embedded in the binary using go:embed directives.
//
// # Rendering Rules
//
//	content, err := template.Render(template.RuleWebConfig, template.DefaultRuleData())
//	if err != nil {
//	    return err
//	}
//
// # Template Data
//
// Templates receive RuleData:
//   - Extension: file extension matched by the MIME mapping ("." for none)
//   - MimeType: MIME type served for matching files
package template
