// Package forms decodes submitted form values and describes HTML forms for rendering.
package forms

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/gorilla/schema"
)

const (
	TypeText        = "text"
	TypeEmail       = "email"
	TypePassword    = "password"
	TypeTextarea    = "textarea"
	TypeCheckbox    = "checkbox"
	TypeSelect      = "select"
	TypeMultiSelect = "multiselect"
	TypeDate        = "date"
	TypeNumber      = "number"
	TypeColor       = "color"
	TypeFile        = "file"
	TypeURL         = "url"
	TypeHidden      = "hidden"

	// NonFieldErrors is the field key for errors that belong to the whole form.
	NonFieldErrors = "__all__"

	maxUploadMemory = 10 << 20
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// Decode fills dst from submitted values using `schema` struct tags.
func Decode(dst interface{}, values url.Values) error {
	return decoder.Decode(dst, values)
}

type Option struct {
	Value    string
	Label    string
	Selected bool
}

type Field struct {
	Name     string
	Label    string
	Type     string
	Value    string
	Checked  bool
	Options  []Option
	Required bool
	ReadOnly bool
	Help     string
	Errors   []string
}

type Form struct {
	Action      string
	Multipart   bool
	SubmitLabel string
	// Continue shows the "save and add another" and "save and continue" buttons.
	Continue  bool
	DeleteURL string
	Fields    []*Field
	Errors    []string
}

func New(action string, fields ...*Field) *Form {
	f := &Form{Action: action, SubmitLabel: "Save", Fields: fields}
	for _, field := range fields {
		if field.Type == TypeFile {
			f.Multipart = true
		}
	}
	return f
}

func (f *Form) Field(name string) *Field {
	for _, field := range f.Fields {
		if field.Name == name {
			return field
		}
	}
	return nil
}

// Apply attaches validation details to the matching fields. Unknown fields
// and non-field errors end up on the form itself.
func (f *Form) Apply(err *internal.AppError) {
	if err == nil {
		return
	}
	fieldErrors := err.FieldErrors()
	if len(fieldErrors) == 0 {
		f.Errors = append(f.Errors, err.Message)
		return
	}
	for name, messages := range fieldErrors {
		if field := f.Field(name); field != nil && name != NonFieldErrors {
			field.Errors = append(field.Errors, messages...)
			continue
		}
		f.Errors = append(f.Errors, messages...)
	}
}

func (f *Form) HasErrors() bool {
	if len(f.Errors) > 0 {
		return true
	}
	for _, field := range f.Fields {
		if len(field.Errors) > 0 {
			return true
		}
	}
	return false
}

func Text(name, label, value string) *Field {
	return &Field{Name: name, Label: label, Type: TypeText, Value: value}
}

func Textarea(name, label, value string) *Field {
	return &Field{Name: name, Label: label, Type: TypeTextarea, Value: value}
}

func Email(name, label, value string) *Field {
	return &Field{Name: name, Label: label, Type: TypeEmail, Value: value}
}

func Password(name, label string) *Field {
	return &Field{Name: name, Label: label, Type: TypePassword}
}

func Checkbox(name, label string, checked bool) *Field {
	return &Field{Name: name, Label: label, Type: TypeCheckbox, Value: "true", Checked: checked}
}

func Select(name, label string, options []Option) *Field {
	return &Field{Name: name, Label: label, Type: TypeSelect, Options: options}
}

func MultiSelect(name, label string, options []Option) *Field {
	return &Field{Name: name, Label: label, Type: TypeMultiSelect, Options: options}
}

func File(name, label, current string) *Field {
	return &Field{Name: name, Label: label, Type: TypeFile, Value: current}
}

func (fl *Field) MarkRequired() *Field {
	fl.Required = true
	return fl
}

func (fl *Field) MarkReadOnly() *Field {
	fl.ReadOnly = true
	return fl
}

func (fl *Field) WithType(t string) *Field {
	fl.Type = t
	return fl
}

func (fl *Field) WithHelp(help string) *Field {
	fl.Help = help
	return fl
}

// Selected marks the options whose value is in chosen.
func Selected(options []Option, chosen ...string) []Option {
	set := make(map[string]struct{}, len(chosen))
	for _, c := range chosen {
		set[c] = struct{}{}
	}
	out := make([]Option, len(options))
	for i, o := range options {
		_, o.Selected = set[o.Value]
		out[i] = o
	}
	return out
}

// Upload is a file submitted with a multipart form.
type Upload struct {
	Field    string
	Filename string
	Bytes    []byte
}

// Input is everything a submitted form carries.
type Input struct {
	Values url.Values
	Files  map[string]Upload
}

func (in Input) Get(name string) string {
	return strings.TrimSpace(in.Values.Get(name))
}

func (in Input) Bool(name string) bool {
	v := in.Values.Get(name)
	return v == "true" || v == "on" || v == "1"
}

// ReadInput parses an urlencoded or multipart request body.
func ReadInput(r *http.Request) (Input, error) {
	in := Input{Files: map[string]Upload{}}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			return in, err
		}
		in.Values = r.PostForm
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 || headers[0].Size == 0 {
				continue
			}
			upload, err := readUpload(name, headers[0])
			if err != nil {
				return in, err
			}
			in.Files[name] = upload
		}
		return in, nil
	}
	if err := r.ParseForm(); err != nil {
		return in, err
	}
	in.Values = r.PostForm
	return in, nil
}

func readUpload(name string, header *multipart.FileHeader) (Upload, error) {
	file, err := header.Open()
	if err != nil {
		return Upload{}, err
	}
	defer file.Close()
	b, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, err
	}
	return Upload{Field: name, Filename: header.Filename, Bytes: b}, nil
}
