package cattree

import (
	"html"
	"io"
	"strings"
)

const documentHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Categories</title>
<style>
ul, #myUL {
  list-style-type: none;
}

#myUL {
  margin: 0;
  padding: 0;
}

.collapsible {
  cursor: pointer;
  font-weight: bold;
}

.collapsible:after {
  content: '\229E';
  font-size: 12px;
  margin-left: 5px;
}

.collapsible:hover {
  color: #555;
}

.active:after {
  content: "\229F";
}
</style>
<script>
function toggleVisibility(id) {
    var element = document.getElementById(id);
    if (element.style.display === "none") {
        element.style.display = "block";
    } else {
        element.style.display = "none";
    }
    if (element.previousElementSibling) {
        element.previousElementSibling.classList.toggle("active");
    }
}
</script>
</head>
<body>
<div id="myUL">
`

const documentTail = `</div>
</body>
</html>
`

// HTML renders the tree as a self-contained document. The output only
// depends on the tree's contents, so unchanged trees render byte-identical.
func (t *Tree) HTML() string {
	var sb strings.Builder
	sb.WriteString(documentHead)
	t.writeFragment(&sb)
	sb.WriteString(documentTail)
	return sb.String()
}

// WriteHTML writes the document produced by HTML to w.
func (t *Tree) WriteHTML(w io.Writer) error {
	_, err := io.WriteString(w, t.HTML())
	return err
}

// Fragment renders only the nested list, without the document shell.
func (t *Tree) Fragment() string {
	var sb strings.Builder
	t.writeFragment(&sb)
	return sb.String()
}

func (t *Tree) writeFragment(sb *strings.Builder) {
	if len(t.root.children) == 0 {
		sb.WriteString("<ul>\n</ul>\n")
		return
	}
	writeNodes(sb, t.root.children, "")
}

func writeNodes(sb *strings.Builder, nodes []*Node, parentID string) {
	if len(nodes) == 0 {
		return
	}
	sb.WriteString("<ul>\n")
	for i, n := range nodes {
		id := NodeID(parentID, i)
		name := html.EscapeString(n.Name)

		sb.WriteString("  <li>\n")
		if n.Collapsible() {
			sb.WriteString(`    <span class="collapsible" onclick="toggleVisibility('` + id + `')">` + name + "</span>\n")
			sb.WriteString(`    <div id="` + id + `" style="display: none;">` + "\n")
		} else {
			sb.WriteString("    <span>" + name + "</span>\n")
			sb.WriteString(`    <div id="` + id + `" style="display: block;">` + "\n")
		}

		writeNodes(sb, n.children, id)

		if len(n.Todos) > 0 {
			sb.WriteString("    <ul>\n")
			for _, todo := range n.Todos {
				sb.WriteString(`      <li style="list-style-type: disc;">` + html.EscapeString(todo) + "</li>\n")
			}
			sb.WriteString("    </ul>\n")
		}

		sb.WriteString("    </div>\n")
		sb.WriteString("  </li>\n")
	}
	sb.WriteString("</ul>\n")
}
