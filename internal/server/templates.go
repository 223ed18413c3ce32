package server

// templates holds the HTML pages served to browsers and to the client. The
// page carries the element ids the notifications client looks for and the
// forgery-protection token field.
const templates = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.}} | Laundry Pal</title>
</head>
{{end}}

{{define "page"}}{{template "head" "Notifications"}}<body>
<nav class="navbar">
  <a class="navbar-brand" href="/">Laundry Pal</a>
  <a class="nav-link" href="/notifications/">Notifications
    <span id="{{.Elements.NavBadgeID}}" class="badge bg-danger" style="display: none"></span>
  </a>
  <div class="dropdown">
    <a id="{{.Elements.DropdownID}}" class="nav-link dropdown-toggle" href="#" role="button" data-bs-toggle="dropdown">
      <i class="fas fa-bell"></i>
      <span id="{{.Elements.BadgeID}}" class="badge bg-danger" style="display: none"></span>
    </a>
    <div class="dropdown-menu dropdown-menu-end">
      <div class="dropdown-header d-flex justify-content-between">
        <span>Notifications</span>
        <button id="{{.Elements.MarkAllID}}" class="btn btn-link btn-sm">Mark all as read</button>
      </div>
      <div id="{{.Elements.ListID}}">
        <div class="text-center py-3 text-muted">Loading...</div>
      </div>
    </div>
  </div>
  <form method="post" action="/accounts/logout/">
    <input type="hidden" name="{{.Elements.TokenField}}" value="{{.CSRFToken}}">
    <button type="submit" class="btn btn-link">Log out</button>
  </form>
</nav>
</body>
</html>
{{end}}

{{define "login"}}{{template "head" "Log in"}}<body>
<form method="post" action="/accounts/login/">
  <input type="hidden" name="{{.Elements.TokenField}}" value="{{.CSRFToken}}">
  <input type="hidden" name="next" value="{{.Next}}">
  {{if .Error}}<div class="alert alert-danger">{{.Error}}</div>{{end}}
  <input type="text" name="username" autofocus>
  <input type="password" name="password">
  <button type="submit">Log in</button>
</form>
</body>
</html>
{{end}}
`
