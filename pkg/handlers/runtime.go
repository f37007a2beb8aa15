package handlers

// The dev bundle is wrapped in this runtime. It writes a script or link tag
// for each included file, relative to the URL the bundle itself was loaded from.
const jsRuntimeStart = `
(function(global) {
var cherry = {};

cherry.rewrite_path = function(path) {
  if (!cherry.is_absolute(path))
    path = cherry.BASE_URL + path;
  return path.replace(/"/g, '&quot;');
};

cherry.include_js = function(path) {
  global.document.write(
    '<script type="text/javascript" src="' + cherry.rewrite_path(path) +
      '"></' + 'script>');
};

cherry.include_css = function(path) {
  global.document.write(
    '<link rel="stylesheet" type="text/css" href="' + cherry.rewrite_path(path) +
      '">');
};

cherry.include_less = function(path) {
  global.document.write(
    '<link rel="stylesheet/less" type="text/css" href="' +
      cherry.rewrite_path(path) + '">');
};

cherry.is_absolute = function(url) {
  return url.startsWith('/') || url.indexOf('://') > 0;
};

cherry.set_base_url = function(name) {
  var elements = global.document.getElementsByTagName('script');
  for (var i = 0; i < elements.length; ++i) {
    var element = elements[i];
    if (element.src.endsWith('/' + name)) {
      cherry.BASE_URL =
        element.src.substring(0, element.src.length - name.length);
      return;
    }
  }
  global.console.error('Cannot find base URL for cherry.');
  cherry.BASE_URL = '';
};
`

const jsRuntimeEnd = `
})(this);
`
